// Package assert panics on broken wiring. It is only meant for
// constructor arguments, never for input that arrives at runtime.
package assert

import "fmt"

func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}

func Positive[T ~int | ~int64 | ~float64](value T) {
	if value <= 0 {
		panic(fmt.Sprintf("expected value to be positive, got %v", value))
	}
}
