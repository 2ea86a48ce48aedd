package core

import (
	"iter"
	"maps"
	"slices"
	"sync"
)

// Location points at one record inside a segment.
type Location struct {
	SegmentID uint64 // Segment holding the record
	Offset    int64  // Byte offset in the segment where the record starts
	Length    uint32 // Total size of the record on disk (header + key + value)
}

// KeyDir is the in-memory index mapping keys to the location of their
// latest Set record.
//
// Removed keys are deleted outright; a KeyDir never points at a tombstone.
// It is rebuilt on startup by replaying every segment in order.
type KeyDir struct {
	mu        sync.RWMutex
	entries   map[string]Location
	liveBytes int64
}

func NewKeyDir() *KeyDir {
	return &KeyDir{entries: make(map[string]Location)}
}

func (kd *KeyDir) Get(key string) (Location, bool) {
	kd.mu.RLock()
	defer kd.mu.RUnlock()

	loc, ok := kd.entries[key]
	return loc, ok
}

// Put records loc as the latest location of key and returns the location it
// replaced, if any.
func (kd *KeyDir) Put(key string, loc Location) (Location, bool) {
	kd.mu.Lock()
	defer kd.mu.Unlock()

	prev, ok := kd.entries[key]
	if ok {
		kd.liveBytes -= int64(prev.Length)
	}

	kd.entries[key] = loc
	kd.liveBytes += int64(loc.Length)

	return prev, ok
}

// Delete drops key and returns the location it pointed at, if any.
func (kd *KeyDir) Delete(key string) (Location, bool) {
	kd.mu.Lock()
	defer kd.mu.Unlock()

	prev, ok := kd.entries[key]
	if ok {
		delete(kd.entries, key)
		kd.liveBytes -= int64(prev.Length)
	}

	return prev, ok
}

func (kd *KeyDir) Len() int {
	kd.mu.RLock()
	defer kd.mu.RUnlock()

	return len(kd.entries)
}

// LiveBytes is the sum of the record lengths the index points at.
func (kd *KeyDir) LiveBytes() int64 {
	kd.mu.RLock()
	defer kd.mu.RUnlock()

	return kd.liveBytes
}

// Keys returns every key in ascending order.
func (kd *KeyDir) Keys() []string {
	kd.mu.RLock()
	defer kd.mu.RUnlock()

	return slices.Sorted(maps.Keys(kd.entries))
}

// All yields every entry in ascending key order. The set of entries is
// captured when All is called; later writes are not observed.
func (kd *KeyDir) All() iter.Seq2[string, Location] {
	kd.mu.RLock()
	snapshot := maps.Clone(kd.entries)
	kd.mu.RUnlock()

	keys := slices.Sorted(maps.Keys(snapshot))

	return func(yield func(string, Location) bool) {
		for _, k := range keys {
			if !yield(k, snapshot[k]) {
				return
			}
		}
	}
}
