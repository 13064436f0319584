package target

import (
	"errors"
	"runtime"
	"testing"

	"github.com/creack/pty"

	"resizewatch/internal/resize"
)

func TestWinsizeDimensionMapping(t *testing.T) {
	size := &pty.Winsize{Rows: 24, Cols: 80, X: 640, Y: 480}
	want := map[resize.Dimension]int{
		resize.OffsetWidth:  640,
		resize.ClientWidth:  80,
		resize.ScrollWidth:  80,
		resize.OffsetHeight: 480,
		resize.ClientHeight: 24,
		resize.ScrollHeight: 24,
	}
	for d, value := range want {
		if got := winsizeDimension(size, d); got != value {
			t.Fatalf("%s: expected %d, got %d", d, value, got)
		}
	}
}

func TestTerminalTargetFollowsWindowSize(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("pty not supported")
	}
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = tty.Close()
		_ = ptmx.Close()
	})

	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80}); err != nil {
		t.Fatalf("setsize: %v", err)
	}
	target, err := NewTerminal(tty)
	if err != nil {
		t.Fatalf("new terminal: %v", err)
	}
	before, err := resize.Capture(target)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if before.ClientWidth != 80 || before.ClientHeight != 24 {
		t.Fatalf("unexpected sample %+v", before)
	}

	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: 40, Cols: 120}); err != nil {
		t.Fatalf("setsize: %v", err)
	}
	changed, err := before.Changed(target)
	if err != nil {
		t.Fatalf("changed: %v", err)
	}
	if !changed {
		t.Fatalf("expected terminal resize to be detected")
	}
}

func TestNewTerminalRejectsNil(t *testing.T) {
	if _, err := NewTerminal(nil); !errors.Is(err, ErrTerminalUnavailable) {
		t.Fatalf("expected ErrTerminalUnavailable, got %v", err)
	}
}
