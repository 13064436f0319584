package resize

import "sync"

// MutableTarget is an in-memory Target safe for concurrent use. Embedding
// applications use it to feed geometry computed elsewhere; tests use it to
// script changes and read failures.
type MutableTarget struct {
	mutex  sync.Mutex
	sample Sample
	err    error
	reads  int
}

func NewMutableTarget(initial Sample) *MutableTarget {
	return &MutableTarget{sample: initial}
}

func (t *MutableTarget) Dimension(d Dimension) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.reads++
	if t.err != nil {
		return 0, t.err
	}
	return t.sample.Get(d), nil
}

// Set changes one field.
func (t *MutableTarget) Set(d Dimension, value int) {
	t.mutex.Lock()
	t.sample = t.sample.With(d, value)
	t.mutex.Unlock()
}

// SetSample replaces all six fields at once.
func (t *MutableTarget) SetSample(sample Sample) {
	t.mutex.Lock()
	t.sample = sample
	t.mutex.Unlock()
}

// Fail makes every read return err until Fail(nil) is called.
func (t *MutableTarget) Fail(err error) {
	t.mutex.Lock()
	t.err = err
	t.mutex.Unlock()
}

// Reads reports how many field reads have been served.
func (t *MutableTarget) Reads() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.reads
}
