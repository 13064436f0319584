package resize

import (
	"fmt"
)

// Dimension names one of the six geometry fields of a Target.
type Dimension int

const (
	OffsetWidth Dimension = iota
	ClientWidth
	ScrollWidth
	OffsetHeight
	ClientHeight
	ScrollHeight
)

// Dimensions lists every field in comparison order.
var Dimensions = [...]Dimension{
	OffsetWidth,
	ClientWidth,
	ScrollWidth,
	OffsetHeight,
	ClientHeight,
	ScrollHeight,
}

func (d Dimension) String() string {
	switch d {
	case OffsetWidth:
		return "offsetWidth"
	case ClientWidth:
		return "clientWidth"
	case ScrollWidth:
		return "scrollWidth"
	case OffsetHeight:
		return "offsetHeight"
	case ClientHeight:
		return "clientHeight"
	case ScrollHeight:
		return "scrollHeight"
	default:
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
}

// ParseDimension maps a field name such as "offsetWidth" to its Dimension.
func ParseDimension(name string) (Dimension, bool) {
	for _, d := range Dimensions {
		if d.String() == name {
			return d, true
		}
	}
	return 0, false
}

// Target is the element being watched. Dimension returns the live value of
// one field. Implementations are read on the watcher's goroutine and must
// not be written by the watcher.
type Target interface {
	Dimension(d Dimension) (int, error)
}

// Sample is a snapshot of the six geometry fields. It is a plain value, so a
// copy never aliases the target or another Sample.
type Sample struct {
	OffsetWidth  int `json:"offsetWidth" yaml:"offsetWidth"`
	ClientWidth  int `json:"clientWidth" yaml:"clientWidth"`
	ScrollWidth  int `json:"scrollWidth" yaml:"scrollWidth"`
	OffsetHeight int `json:"offsetHeight" yaml:"offsetHeight"`
	ClientHeight int `json:"clientHeight" yaml:"clientHeight"`
	ScrollHeight int `json:"scrollHeight" yaml:"scrollHeight"`
}

// Get returns the value of field d.
func (s Sample) Get(d Dimension) int {
	switch d {
	case OffsetWidth:
		return s.OffsetWidth
	case ClientWidth:
		return s.ClientWidth
	case ScrollWidth:
		return s.ScrollWidth
	case OffsetHeight:
		return s.OffsetHeight
	case ClientHeight:
		return s.ClientHeight
	case ScrollHeight:
		return s.ScrollHeight
	default:
		return 0
	}
}

// With returns a copy of s with field d set to value.
func (s Sample) With(d Dimension, value int) Sample {
	switch d {
	case OffsetWidth:
		s.OffsetWidth = value
	case ClientWidth:
		s.ClientWidth = value
	case ScrollWidth:
		s.ScrollWidth = value
	case OffsetHeight:
		s.OffsetHeight = value
	case ClientHeight:
		s.ClientHeight = value
	case ScrollHeight:
		s.ScrollHeight = value
	}
	return s
}

// Map returns the fields keyed by their names.
func (s Sample) Map() map[string]int {
	fields := make(map[string]int, len(Dimensions))
	for _, d := range Dimensions {
		fields[d.String()] = s.Get(d)
	}
	return fields
}

// Capture reads all six fields from target into a new Sample.
func Capture(target Target) (Sample, error) {
	var sample Sample
	for _, d := range Dimensions {
		value, err := readDimension(target, d)
		if err != nil {
			return Sample{}, err
		}
		sample = sample.With(d, value)
	}
	return sample, nil
}

// Changed reads target field by field in comparison order and reports
// whether any field differs from s. It stops at the first difference.
func (s Sample) Changed(target Target) (bool, error) {
	for _, d := range Dimensions {
		value, err := readDimension(target, d)
		if err != nil {
			return false, err
		}
		if value != s.Get(d) {
			return true, nil
		}
	}
	return false, nil
}

// readDimension converts both errors and panics raised by the target into a
// *TargetReadError.
func readDimension(target Target, d Dimension) (value int, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &TargetReadError{Dimension: d, Err: fmt.Errorf("panic: %v", recovered)}
		}
	}()
	value, err = target.Dimension(d)
	if err != nil {
		return 0, &TargetReadError{Dimension: d, Err: err}
	}
	return value, nil
}
