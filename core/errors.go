package core

import (
	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/internal/lock"
	"github.com/0xRadioAc7iv/go-kvs/internal/record"
	"github.com/0xRadioAc7iv/go-kvs/internal/segment"
)

var (
	// ErrKeyNotFound is returned by Remove for a key that is not stored.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCorruptRecord is returned when a frame in the log fails to decode.
	ErrCorruptRecord = record.ErrCorruptRecord

	// ErrClosed is returned by Get, Set, Remove, Compact and Close once the
	// store is closed.
	ErrClosed = errors.New("store is closed")

	// ErrBroken is returned by mutations after the active segment failed in
	// a way that leaves its tail unknown. Reopen the store to recover.
	ErrBroken = segment.ErrBroken

	// ErrLocked is returned by Open when another store holds the directory.
	ErrLocked = lock.ErrLocked
)
