package target

import (
	"errors"
	"os"

	"github.com/creack/pty"

	"resizewatch/internal/resize"
)

var ErrTerminalUnavailable = errors.New("terminal is not available")

// TerminalTarget exposes the window size of a terminal. Pixel sizes map to
// the offset fields; character cells map to the client and scroll fields:
//
//	offsetWidth  = pixel width    offsetHeight = pixel height
//	clientWidth  = columns        clientHeight = rows
//	scrollWidth  = columns        scrollHeight = rows
//
// Many terminals report zero pixel sizes; the cell fields still change.
type TerminalTarget struct {
	file *os.File
}

func NewTerminal(file *os.File) (*TerminalTarget, error) {
	if file == nil {
		return nil, ErrTerminalUnavailable
	}
	if _, err := pty.GetsizeFull(file); err != nil {
		return nil, errors.Join(ErrTerminalUnavailable, err)
	}
	return &TerminalTarget{file: file}, nil
}

func (t *TerminalTarget) Dimension(d resize.Dimension) (int, error) {
	size, err := pty.GetsizeFull(t.file)
	if err != nil {
		return 0, err
	}
	return winsizeDimension(size, d), nil
}

func winsizeDimension(size *pty.Winsize, d resize.Dimension) int {
	switch d {
	case resize.OffsetWidth:
		return int(size.X)
	case resize.ClientWidth, resize.ScrollWidth:
		return int(size.Cols)
	case resize.OffsetHeight:
		return int(size.Y)
	case resize.ClientHeight, resize.ScrollHeight:
		return int(size.Rows)
	default:
		return 0
	}
}
