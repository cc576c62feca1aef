// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package swapbox

import "github.com/petenewcomb/swapbox-go/internal/lock"

// LockVariant lets tests construct boxes over a specific lock implementation
// regardless of build tags.
type LockVariant struct {
	Name     string
	Poisons  bool
	newMutex func() lock.Mutex
}

var LockVariants = []LockVariant{
	{
		Name:     "poisoning",
		Poisons:  true,
		newMutex: func() lock.Mutex { return &lock.Poisoning{} },
	},
	{
		Name:     "fast",
		Poisons:  false,
		newMutex: func() lock.Mutex { return lock.NewFast() },
	},
}

func NewWith[T any](lv LockVariant, v T) *Box[T] {
	return newBox(lv.newMutex(), &v)
}

func NewBoxedWith[T any](lv LockVariant, p *T) *Box[T] {
	return newBox(lv.newMutex(), p)
}

func NewEmptyWith[T any](lv LockVariant) *Box[T] {
	return newBox[T](lv.newMutex(), nil)
}

func ShareCount[T any](b *Box[T]) int64 {
	return b.ref.c.refs.Load()
}
