package hsts

import (
	"time"

	"github.com/lestrrat-go/option"
)

type Option = option.Interface

// StoreOption configures a Store implementation.
type StoreOption interface {
	Option
	storeOption()
}

type storeOption struct {
	Option
}

func (storeOption) storeOption() {}

type identClock struct{}

func (identClock) String() string { return "WithClock" }

// WithClock sets the clock used to compute and check record expiry.
// Stores default to SystemClock.
func WithClock(clock Clock) StoreOption {
	return storeOption{option.New(identClock{}, clock)}
}

// ClockFromOptions extracts the clock configured via WithClock, falling
// back to SystemClock. It is intended for Store implementations living
// outside of this package.
func ClockFromOptions(options ...StoreOption) Clock {
	var clock Clock = SystemClock{}
	for _, opt := range options {
		switch opt.Ident() {
		case identClock{}:
			if c, ok := opt.Value().(Clock); ok && c != nil {
				clock = c
			}
		}
	}
	return clock
}

// Clock is the source of "now" for record expiry.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock. Persistent stores treat it specially:
// only records written under SystemClock may be expired by the storage
// engine itself.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

// FixedClock returns a Clock frozen at t.
func FixedClock(t time.Time) Clock {
	return fixedClock(t)
}
