// Package patching carries partial-update fields that distinguish "leave the
// value alone" from "set it, possibly to the zero value".
package patching

// Field is a tagged optional value for patch-style commands and events.
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a field carrying a new value.
func Set[T any](value T) Field[T] {
	return Field[T]{value: value, set: true}
}

// Unset returns a field that leaves the target unchanged.
func Unset[T any]() Field[T] {
	return Field[T]{}
}

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// IsSet reports whether the field carries a value.
func (f Field[T]) IsSet() bool { return f.set }

// Apply overwrites target when the field is set and reports whether the
// stored value actually changed.
func Apply[T comparable](f Field[T], target *T) bool {
	if !f.set || target == nil {
		return false
	}
	if *target == f.value {
		return false
	}
	*target = f.value
	return true
}
