package core

import (
	"time"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/internal/log"
	"github.com/0xRadioAc7iv/go-kvs/internal/record"
	"github.com/0xRadioAc7iv/go-kvs/internal/segment"
)

// mergeWriter writes compaction output into temporary segments. Nothing it
// writes is visible to recovery until commit renames the files.
type mergeWriter struct {
	dir     string
	nextID  uint64
	maxSize int64
	files   []*segment.File
}

func (w *mergeWriter) append(frame []byte) (Location, error) {
	if len(w.files) == 0 || w.current().Size() >= w.maxSize {
		if err := w.roll(); err != nil {
			return Location{}, err
		}
	}

	cur := w.current()
	offset, length, err := cur.Write(frame)
	if err != nil {
		return Location{}, err
	}

	return Location{SegmentID: cur.ID(), Offset: offset, Length: length}, nil
}

func (w *mergeWriter) current() *segment.File {
	return w.files[len(w.files)-1]
}

func (w *mergeWriter) roll() error {
	f, err := segment.CreateTemp(w.dir, w.nextID)
	if err != nil {
		return err
	}

	w.nextID++
	w.files = append(w.files, f)
	return nil
}

// commit makes the output durable and gives every file its final name.
// There is always at least one file so the store keeps an active segment.
func (w *mergeWriter) commit() ([]*segment.File, error) {
	if len(w.files) == 0 {
		if err := w.roll(); err != nil {
			return nil, err
		}
	}

	for _, f := range w.files {
		if err := f.Sync(); err != nil {
			return nil, err
		}
	}

	for _, f := range w.files {
		if err := f.Commit(); err != nil {
			return nil, err
		}
	}

	if err := segment.SyncDir(w.dir); err != nil {
		return nil, err
	}

	return w.files, nil
}

// abort deletes everything written so far. Files that were already
// committed are deleted too: they only repeat records the old segments hold.
func (w *mergeWriter) abort() {
	for _, f := range w.files {
		if err := f.Remove(); err != nil {
			log.Warn("compaction cleanup: %v", err)
		}
	}
	w.files = nil
}

// maybeCompact runs a compaction when enough of the log is stale. The
// caller holds writeMu. Failures are logged, not returned: the write that
// triggered the check has already committed.
func (s *Store) maybeCompact() {
	if !s.opts.AutoCompact {
		return
	}

	total := s.segments.totalBytes()
	if total == 0 || total < s.opts.MinCompactionSize {
		return
	}

	stale := total - s.keyDir.LiveBytes()
	if float64(stale)/float64(total) <= s.opts.CompactionRatio {
		return
	}

	if err := s.compact(); err != nil {
		log.Error("automatic compaction of %s failed: %v", s.dir, err)
	}
}

// compact rewrites the live records into fresh segments and swaps them in.
// The caller holds writeMu, so the index cannot change underneath it.
//
// Old segments serve reads until the swap. The swap itself holds viewMu
// exclusively so no reader sees new segments with old locations or the
// other way round.
func (s *Store) compact() error {
	start := time.Now()
	before := s.segments.totalBytes()

	w := &mergeWriter{
		dir:     s.segments.dir,
		nextID:  s.segments.nextID(),
		maxSize: s.opts.MaxSegmentSize,
	}

	relocated := make(map[string]Location, s.keyDir.Len())
	for key, loc := range s.keyDir.All() {
		frame, err := s.segments.read(loc)
		if err != nil {
			w.abort()
			return errors.Wrapf(err, "compact: read %q", key)
		}

		// Copy frames verbatim, but never carry a bad one into the new log.
		if _, err := record.Decode(frame); err != nil {
			w.abort()
			return errors.Wrapf(err, "compact: record for %q", key)
		}

		newLoc, err := w.append(frame)
		if err != nil {
			w.abort()
			return errors.Wrap(err, "compact: write")
		}
		relocated[key] = newLoc
	}

	files, err := w.commit()
	if err != nil {
		w.abort()
		return errors.Wrap(err, "compact: commit")
	}

	s.viewMu.Lock()
	old := s.segments.swap(files)
	for key, loc := range relocated {
		s.keyDir.Put(key, loc)
	}
	s.viewMu.Unlock()

	// Remove oldest first and stop at the first failure: whatever is left
	// is then a suffix of the old log, which replays to the same state. The
	// survivors stay tracked so the next compaction removes them before it
	// can drop any tombstone that still shadows them.
	for i, f := range old {
		if err := f.Remove(); err != nil {
			log.Error("compaction could not remove %s, keeping %d old segments: %v", f.Path(), len(old)-i, err)
			s.segments.retain(old[i:])
			break
		}
	}
	if err := segment.SyncDir(s.segments.dir); err != nil {
		log.Warn("compaction: %v", err)
	}

	after := s.segments.totalBytes()
	elapsed := time.Since(start)

	s.metrics.Compactions.Inc()
	s.metrics.CompactionDuration.Observe(elapsed.Seconds())
	s.updateGauges()

	log.Info("compacted %s: %d keys, %d -> %d bytes, %d -> %d segments in %s",
		s.dir, len(relocated), before, after, len(old), len(files), elapsed)

	return nil
}
