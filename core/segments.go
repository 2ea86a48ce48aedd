package core

import (
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/internal/log"
	"github.com/0xRadioAc7iv/go-kvs/internal/record"
	"github.com/0xRadioAc7iv/go-kvs/internal/segment"
)

// segmentManager owns every segment file of a store. ids is kept ascending
// and the active segment always has the greatest id.
//
// mu guards ids, files and active. Only the store's single writer changes
// them, so the writer may read them without taking mu.
type segmentManager struct {
	dir     string
	maxSize int64

	mu     sync.RWMutex
	ids    []uint64
	files  map[uint64]*segment.File
	active *segment.File
}

// openSegments loads the segment directory, replaying every segment into
// kd in id order, and prepares the active segment.
func openSegments(dir string, maxSize int64, kd *KeyDir) (*segmentManager, error) {
	if err := openDataDirectory(dir); err != nil {
		return nil, err
	}

	ids, err := scanForSegments(dir)
	if err != nil {
		return nil, err
	}

	m := &segmentManager{
		dir:     dir,
		maxSize: maxSize,
		files:   make(map[uint64]*segment.File, len(ids)+1),
	}

	for i, id := range ids {
		f, err := segment.Open(dir, id)
		if err != nil {
			m.close()
			return nil, err
		}
		m.files[id] = f
		m.ids = append(m.ids, id)

		if err := m.replay(f, kd, i == len(ids)-1); err != nil {
			m.close()
			return nil, err
		}
	}

	if len(ids) > 0 {
		latest := m.files[ids[len(ids)-1]]

		// Keep appending to the latest segment while it has room, so
		// restarts do not leave a trail of tiny files behind.
		if latest.Size() < maxSize {
			m.active = latest
			return m, nil
		}
	}

	if err := m.rotate(); err != nil {
		m.close()
		return nil, err
	}

	return m, nil
}

func openDataDirectory(dir string) error {
	_, err := os.Stat(dir)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return errors.Wrap(err, "stat data directory")
	}

	log.Info("segment directory %s does not exist, creating it", dir)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create data directory")
	}

	return nil
}

// scanForSegments lists segment ids in ascending order and deletes
// compaction outputs that were never committed.
func scanForSegments(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read data directory")
	}

	var ids []uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if segment.IsTempFileName(name) {
			log.Warn("removing %s left behind by an interrupted compaction", name)
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return nil, errors.Wrap(err, "remove stale compaction output")
			}
			continue
		}

		if id, ok := segment.ParseFileName(name); ok {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)
	return ids, nil
}

// replay applies every record of f to kd. A torn frame at the end of the
// newest segment is an append that never returned, so it is cut off; a torn
// frame anywhere else is corruption.
func (m *segmentManager) replay(f *segment.File, kd *KeyDir, newest bool) error {
	err := f.Scan(func(rec record.Record, offset int64, length uint32) error {
		switch rec.Kind {
		case record.KindSet:
			kd.Put(rec.Key, Location{SegmentID: f.ID(), Offset: offset, Length: length})
		case record.KindRemove:
			kd.Delete(rec.Key)
		}
		return nil
	})

	var torn *segment.TornError
	if errors.As(err, &torn) {
		if !newest {
			return errors.Wrap(ErrCorruptRecord, torn.Error())
		}

		log.Warn("truncating %s at offset %d: incomplete record", filepath.Base(f.Path()), torn.Offset)
		return f.Truncate(torn.Offset)
	}

	return err
}

func (m *segmentManager) append(data []byte) (Location, error) {
	offset, length, err := m.active.Append(data)
	if err != nil {
		return Location{}, err
	}

	return Location{SegmentID: m.active.ID(), Offset: offset, Length: length}, nil
}

func (m *segmentManager) shouldRotate() bool {
	return m.active.Size() >= m.maxSize
}

// rotate seals the active segment and starts a new one after it.
func (m *segmentManager) rotate() error {
	id := m.nextID()

	next, err := segment.Create(m.dir, id)
	if err != nil {
		return err
	}

	if err := segment.SyncDir(m.dir); err != nil {
		next.Remove()
		return err
	}

	m.mu.Lock()
	m.files[id] = next
	m.ids = append(m.ids, id)
	m.active = next
	m.mu.Unlock()

	log.Debug("active segment is now %s", segment.FileName(id))
	return nil
}

func (m *segmentManager) nextID() uint64 {
	if m.active == nil {
		if len(m.ids) == 0 {
			return 1
		}
		return m.ids[len(m.ids)-1] + 1
	}

	return m.active.ID() + 1
}

// read returns the raw frame at loc.
func (m *segmentManager) read(loc Location) ([]byte, error) {
	m.mu.RLock()
	f, ok := m.files[loc.SegmentID]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.Errorf("segment %d not found", loc.SegmentID)
	}

	return f.ReadAt(loc.Offset, loc.Length)
}

// swap replaces every segment with files, which must be ordered and have
// ids above the current ones. The last of files becomes active. The
// replaced segments are returned oldest first and are still open.
func (m *segmentManager) swap(files []*segment.File) []*segment.File {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := make([]*segment.File, 0, len(m.ids))
	for _, id := range m.ids {
		old = append(old, m.files[id])
	}

	m.ids = m.ids[:0:0]
	m.files = make(map[uint64]*segment.File, len(files))
	for _, f := range files {
		m.ids = append(m.ids, f.ID())
		m.files[f.ID()] = f
	}
	m.active = files[len(files)-1]

	return old
}

// retain puts sealed segments that could not be deleted back in front of
// the current ones. They hold no live data but stay part of the log, so
// they are counted, replayed on open and retried by the next compaction.
// files must be ordered and have ids below the current ones.
func (m *segmentManager) retain(files []*segment.File) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]uint64, 0, len(files)+len(m.ids))
	for _, f := range files {
		ids = append(ids, f.ID())
		m.files[f.ID()] = f
	}
	m.ids = append(ids, m.ids...)
}

func (m *segmentManager) totalBytes() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, f := range m.files {
		total += f.Size()
	}
	return total
}

func (m *segmentManager) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.ids)
}

// close syncs the active segment and closes every file, returning the first
// error met.
func (m *segmentManager) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	if m.active != nil {
		firstErr = m.active.Sync()
	}

	for _, id := range m.ids {
		if err := m.files[id].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
