package device

import "math"

// relativeThreshold is the fraction by which a numeric sample must differ
// from the last accepted value before it is published.
const relativeThreshold = 0.10

// CompareStrategy decides whether a new sample differs enough from the last
// accepted value to be worth publishing. One strategy per sensor kind
// replaces runtime inspection of the value's type.
type CompareStrategy interface {
	Significant(lastAccepted, sample float64) bool
}

// RelativeCompare accepts samples that differ from the last accepted value
// by more than Threshold, relative to the last accepted value.
type RelativeCompare struct {
	Threshold float64
}

// Significant implements CompareStrategy.
func (r RelativeCompare) Significant(lastAccepted, sample float64) bool {
	return math.Abs(sample-lastAccepted) > r.Threshold*math.Abs(lastAccepted)
}

// BooleanCompare accepts any sample unequal to the last accepted value.
// Boolean readings are carried as 0 and 1.
type BooleanCompare struct{}

// Significant implements CompareStrategy.
func (BooleanCompare) Significant(lastAccepted, sample float64) bool {
	return lastAccepted != sample
}

// Debouncer filters raw sensor samples so only significant changes publish.
//
// The last accepted value starts at the type's default, so the first sample
// is debounced against the default like any later sample against its
// predecessor. The raw sample always becomes the last observed value; the
// last accepted value moves only on publish.
//
// Not safe for concurrent use; the owning Associable serialises access.
type Debouncer struct {
	strategy CompareStrategy

	published    bool
	lastAccepted float64
	lastObserved float64
}

// NewDebouncer creates a debouncer with the given strategy and type default.
func NewDebouncer(strategy CompareStrategy, def float64) *Debouncer {
	return &Debouncer{strategy: strategy, lastAccepted: def, lastObserved: def}
}

// newSensorDebouncer builds the debouncer matching a sensor spec.
func newSensorDebouncer(spec *sensorSpec) *Debouncer {
	switch spec.Kind {
	case sensorBoolean:
		return NewDebouncer(BooleanCompare{}, spec.Default)
	default:
		return NewDebouncer(RelativeCompare{Threshold: relativeThreshold}, spec.Default)
	}
}

// Offer evaluates one raw sample and reports whether it should be published.
func (d *Debouncer) Offer(sample float64) bool {
	d.lastObserved = sample

	if !d.strategy.Significant(d.lastAccepted, sample) {
		return false
	}
	d.published = true
	d.lastAccepted = sample
	return true
}

// LastObserved returns the most recent raw sample, published or not.
func (d *Debouncer) LastObserved() float64 {
	return d.lastObserved
}

// LastAccepted returns the last published value and whether one was ever
// published.
func (d *Debouncer) LastAccepted() (float64, bool) {
	return d.lastAccepted, d.published
}
