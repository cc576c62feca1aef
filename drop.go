// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package swapbox

import "reflect"

// Dropper is implemented by values that own resources which must be released
// when the value leaves a box: when it is displaced by a replace or clear, or
// when the box's last handle is released while the value is still held. Drop
// is called exactly once per displacement, with the cell's lock held, so it
// must not acquire the same cell's lock.
//
// Either T or *T may implement Dropper.
//
// When the last handle to a cell is released by the runtime rather than by
// [Box.Release], Drop runs on the runtime's cleanup goroutine. A Drop that
// blocks there delays every other cleanup in the process.
type Dropper interface {
	Drop()
}

func drop[T any](p *T) {
	if p == nil {
		return
	}
	if d, ok := any(*p).(Dropper); ok {
		d.Drop()
		return
	}
	if d, ok := any(p).(Dropper); ok {
		d.Drop()
	}
}

// sameReference reports whether a and b hold the same pointer-like value,
// either directly or as the dynamic value of an interface. Installing such a
// value over itself must not drop it, since it stays in the slot.
func sameReference[T any](a, b *T) bool {
	x, y := reflect.ValueOf(any(*a)), reflect.ValueOf(any(*b))
	if !x.IsValid() || !y.IsValid() || x.Type() != y.Type() {
		return false
	}
	switch x.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.Map, reflect.UnsafePointer:
		return x.Pointer() != 0 && x.Pointer() == y.Pointer()
	default:
		return false
	}
}
