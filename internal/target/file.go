package target

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"resizewatch/internal/logging"
	"resizewatch/internal/resize"
)

var ErrFileRemoved = errors.New("geometry file removed")

// FileOptions controls FileTarget behavior.
type FileOptions struct {
	Logger *logging.Logger
}

// FileTarget serves geometry from a YAML document such as
//
//	offsetWidth: 100
//	clientWidth: 100
//	scrollWidth: 100
//	offsetHeight: 50
//	clientHeight: 50
//	scrollHeight: 50
//
// The document is reloaded whenever the file changes on disk. While the
// latest version cannot be parsed, every read returns the parse error.
type FileTarget struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *logging.Logger

	mutex  sync.RWMutex
	sample resize.Sample
	err    error

	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

// OpenFile loads path and starts watching it for changes.
func OpenFile(path string, options FileOptions) (*FileTarget, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	sample, err := loadGeometry(absolute)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors often replace the file instead of writing it in place, so the
	// directory is watched and events are filtered by name.
	if err := watcher.Add(filepath.Dir(absolute)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	target := &FileTarget{
		path:    absolute,
		watcher: watcher,
		logger:  logger.With(map[string]string{"component": "file_target", "path": absolute}),
		sample:  sample,
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go target.run()
	return target, nil
}

func (t *FileTarget) Dimension(d resize.Dimension) (int, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	if t.err != nil {
		return 0, t.err
	}
	return t.sample.Get(d), nil
}

func (t *FileTarget) Path() string {
	return t.path
}

// Reload rereads the file immediately.
func (t *FileTarget) Reload() error {
	sample, err := loadGeometry(t.path)

	t.mutex.Lock()
	if err == nil {
		t.sample = sample
	}
	t.err = err
	t.mutex.Unlock()

	if err != nil {
		t.logger.Warn("geometry reload failed", map[string]string{"error": err.Error()})
	}
	return err
}

// Close stops watching the file.
func (t *FileTarget) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.watcher.Close()
		<-t.exited
	})
	return err
}

func (t *FileTarget) run() {
	defer close(t.exited)
	for {
		select {
		case fsEvent, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			t.handleEvent(fsEvent)
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn("file watch error", map[string]string{"error": err.Error()})
		case <-t.done:
			return
		}
	}
}

func (t *FileTarget) handleEvent(fsEvent fsnotify.Event) {
	if filepath.Clean(fsEvent.Name) != t.path {
		return
	}
	switch {
	case fsEvent.Has(fsnotify.Write), fsEvent.Has(fsnotify.Create):
		_ = t.Reload()
	case fsEvent.Has(fsnotify.Remove), fsEvent.Has(fsnotify.Rename):
		t.mutex.Lock()
		t.err = ErrFileRemoved
		t.mutex.Unlock()
		t.logger.Warn("geometry file removed", nil)
	}
}

func loadGeometry(path string) (resize.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return resize.Sample{}, err
	}
	return DecodeGeometry(data)
}

// DecodeGeometry parses a YAML geometry document. Unknown keys are errors.
func DecodeGeometry(data []byte) (resize.Sample, error) {
	var sample resize.Sample
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sample); err != nil {
		return resize.Sample{}, fmt.Errorf("invalid geometry document: %w", err)
	}
	for _, d := range resize.Dimensions {
		if sample.Get(d) < 0 {
			return resize.Sample{}, fmt.Errorf("invalid geometry document: %s is negative", d)
		}
	}
	return sample, nil
}

// EncodeGeometry renders sample in the format DecodeGeometry reads.
func EncodeGeometry(sample resize.Sample) ([]byte, error) {
	return yaml.Marshal(sample)
}
