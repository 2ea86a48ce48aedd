package core

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/internal/lock"
	"github.com/0xRadioAc7iv/go-kvs/internal/log"
	"github.com/0xRadioAc7iv/go-kvs/internal/metrics"
	"github.com/0xRadioAc7iv/go-kvs/internal/record"
)

// Store is an open key-value store rooted at one directory.
//
// Mutations (Set, Remove, Compact) are serialized. Get runs concurrently
// with everything and sees each mutation either entirely or not at all.
type Store struct {
	dir      string
	opts     Options
	lockFile *os.File
	keyDir   *KeyDir
	segments *segmentManager
	metrics  *metrics.Metrics

	writeMu sync.Mutex   // serializes Set, Remove, Compact and Close
	viewMu  sync.RWMutex // readers vs. the compaction swap
	closed  atomic.Bool
}

// Stats is a point-in-time summary of a store.
type Stats struct {
	Keys       int
	Segments   int
	TotalBytes int64
	LiveBytes  int64
}

// StaleRatio is the share of the log taken by superseded records and
// tombstones.
func (st Stats) StaleRatio() float64 {
	if st.TotalBytes == 0 {
		return 0
	}
	return float64(st.TotalBytes-st.LiveBytes) / float64(st.TotalBytes)
}

// Open opens the store in dir, creating it if needed, and rebuilds the
// index by replaying every segment.
//
// Only one Store may have a directory open at a time; a second Open fails
// with ErrLocked.
func Open(dir string, opts ...Option) (*Store, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create store directory")
	}

	lf, err := lock.LockDirectory(dir)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	keyDir := NewKeyDir()
	segments, err := openSegments(filepath.Join(dir, DataDirName), o.MaxSegmentSize, keyDir)
	if err != nil {
		lock.UnlockDirectory(lf)
		return nil, errors.Wrapf(err, "open %s", dir)
	}

	s := &Store{
		dir:      dir,
		opts:     o,
		lockFile: lf,
		keyDir:   keyDir,
		segments: segments,
		metrics:  metrics.New(o.Registerer),
	}
	s.updateGauges()

	log.Info("opened %s: %d keys in %d segments (%s)", dir, keyDir.Len(), segments.count(), time.Since(start))

	return s, nil
}

// Get returns the value stored under key. A missing key is not an error:
// ok is false and err is nil.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()

	if s.closed.Load() {
		return "", false, ErrClosed
	}

	value, ok, err = s.get(key)
	s.metrics.Observe("get", err)
	return value, ok, err
}

func (s *Store) get(key string) (string, bool, error) {
	loc, ok := s.keyDir.Get(key)
	if !ok {
		return "", false, nil
	}

	frame, err := s.segments.read(loc)
	if err != nil {
		return "", false, errors.Wrapf(err, "get %q", key)
	}

	rec, err := record.Decode(frame)
	if err != nil {
		return "", false, errors.Wrapf(err, "get %q", key)
	}
	if rec.Kind != record.KindSet || rec.Key != key {
		return "", false, errors.Wrapf(ErrCorruptRecord, "index entry for %q points at a %s record for %q", key, rec.Kind, rec.Key)
	}

	return rec.Value, true, nil
}

// Set stores value under key. It returns once the record is on disk.
func (s *Store) Set(key, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}

	err := s.set(key, value)
	s.metrics.Observe("set", err)
	return err
}

func (s *Store) set(key, value string) error {
	frame, err := record.Encode(record.Set(key, value), s.opts.Compress)
	if err != nil {
		return errors.Wrapf(err, "set %q", key)
	}

	loc, err := s.segments.append(frame)
	if err != nil {
		return errors.Wrapf(err, "set %q", key)
	}

	s.keyDir.Put(key, loc)
	s.afterWrite()
	return nil
}

// Remove deletes key. Removing an absent key appends nothing and fails with
// ErrKeyNotFound, unless the store was opened WithStrictRemove(false).
func (s *Store) Remove(key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}

	err := s.remove(key)
	s.metrics.Observe("remove", err)
	return err
}

func (s *Store) remove(key string) error {
	if _, ok := s.keyDir.Get(key); !ok {
		if s.opts.StrictRemove {
			return errors.Wrapf(ErrKeyNotFound, "remove %q", key)
		}
		return nil
	}

	frame, err := record.Encode(record.Remove(key), false)
	if err != nil {
		return errors.Wrapf(err, "remove %q", key)
	}

	if _, err := s.segments.append(frame); err != nil {
		return errors.Wrapf(err, "remove %q", key)
	}

	s.keyDir.Delete(key)
	s.afterWrite()
	return nil
}

// afterWrite handles segment rollover and automatic compaction once a
// record has committed. Neither can undo the write, so failures are logged.
func (s *Store) afterWrite() {
	if s.segments.shouldRotate() {
		if err := s.segments.rotate(); err != nil {
			log.Error("segment rollover in %s failed, will retry on next write: %v", s.dir, err)
		} else {
			s.metrics.Rollovers.Inc()
		}
	}

	s.maybeCompact()
	s.updateGauges()
}

// Compact rewrites the live records into fresh segments and deletes the old
// ones. Reads keep working while it runs; writes wait for it.
func (s *Store) Compact() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrClosed
	}

	err := s.compact()
	s.metrics.Observe("compact", err)
	return err
}

func (s *Store) Exists(key string) bool {
	if s.closed.Load() {
		return false
	}

	_, ok := s.keyDir.Get(key)
	return ok
}

func (s *Store) Len() int {
	return s.keyDir.Len()
}

// Keys returns every live key in ascending order.
func (s *Store) Keys() []string {
	return s.keyDir.Keys()
}

func (s *Store) Stats() Stats {
	return Stats{
		Keys:       s.keyDir.Len(),
		Segments:   s.segments.count(),
		TotalBytes: s.segments.totalBytes(),
		LiveBytes:  s.keyDir.LiveBytes(),
	}
}

// Dir returns the directory the store lives in.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) updateGauges() {
	st := s.Stats()
	s.metrics.Keys.Set(float64(st.Keys))
	s.metrics.Segments.Set(float64(st.Segments))
	s.metrics.TotalBytes.Set(float64(st.TotalBytes))
	s.metrics.LiveBytes.Set(float64(st.LiveBytes))
}

// Close syncs and closes every segment and releases the directory lock.
// Nothing on disk is removed.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.viewMu.Lock()
	defer s.viewMu.Unlock()

	if s.closed.Swap(true) {
		return ErrClosed
	}

	err := s.segments.close()
	lock.UnlockDirectory(s.lockFile)

	if err != nil {
		log.Error("closing %s: %v", s.dir, err)
		return err
	}

	log.Info("closed %s", s.dir)
	return nil
}
