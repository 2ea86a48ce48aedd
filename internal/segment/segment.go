// Package segment implements a single append-only log file.
//
// A segment is written strictly at its end and read with positioned reads,
// so one open handle can serve an appender and any number of readers at the
// same time.
package segment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-kvs/internal/record"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

const (
	FilePrefix     = "bk_"
	TempFilePrefix = "merged_"
	FileExt        = ".data"

	idDigits = 20
)

// ErrBroken marks a segment whose end of file is no longer known to be
// consistent. It must not be appended to again.
var ErrBroken = errors.New("segment is broken")

type File struct {
	id     uint64
	path   string
	f      *os.File
	size   atomic.Int64
	broken atomic.Bool
	closed atomic.Bool
}

// FileName returns the on-disk name of segment id. Names are zero padded so
// lexical order matches numeric order.
func FileName(id uint64) string {
	return fmt.Sprintf("%s%0*d%s", FilePrefix, idDigits, id, FileExt)
}

func tempFileName(id uint64) string {
	return fmt.Sprintf("%s%0*d%s", TempFilePrefix, idDigits, id, FileExt)
}

// ParseFileName extracts the id from a segment file name.
func ParseFileName(name string) (uint64, bool) {
	return parseName(name, FilePrefix)
}

// IsTempFileName reports whether name is a compaction output that was
// never committed.
func IsTempFileName(name string) bool {
	_, ok := parseName(name, TempFilePrefix)
	return ok
}

func parseName(name, prefix string) (uint64, bool) {
	if !strings.HasPrefix(name, prefix) || filepath.Ext(name) != FileExt {
		return 0, false
	}

	digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix), FileExt)
	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// Create makes a new, empty segment. It fails if the file already exists.
func Create(dir string, id uint64) (*File, error) {
	return create(dir, id, FileName(id))
}

// CreateTemp makes a compaction output segment. It becomes visible to
// recovery only after Commit.
func CreateTemp(dir string, id uint64) (*File, error) {
	return create(dir, id, tempFileName(id))
}

func create(dir string, id uint64, name string) (*File, error) {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "create segment")
	}

	return &File{id: id, path: path, f: f}, nil
}

// Open opens an existing segment for reading and appending.
func Open(dir string, id uint64) (*File, error) {
	path := filepath.Join(dir, FileName(id))

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "open segment")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat segment")
	}

	sf := &File{id: id, path: path, f: f}
	sf.size.Store(info.Size())

	return sf, nil
}

func (s *File) ID() uint64 {
	return s.id
}

func (s *File) Path() string {
	return s.path
}

// Size is the number of bytes written so far.
func (s *File) Size() int64 {
	return s.size.Load()
}

// Append writes data at the end of the segment and syncs it to disk before
// returning. The returned offset is where data starts.
//
// Append must not be called concurrently with itself or Write.
func (s *File) Append(data []byte) (offset int64, length uint32, err error) {
	return s.write(data, true)
}

// Write is Append without the sync. The data is not durable until a later
// Sync succeeds.
func (s *File) Write(data []byte) (offset int64, length uint32, err error) {
	return s.write(data, false)
}

func (s *File) write(data []byte, sync bool) (offset int64, length uint32, err error) {
	if s.broken.Load() {
		return 0, 0, errors.Wrap(ErrBroken, s.path)
	}

	offset = s.size.Load()

	n, err := s.f.WriteAt(data, offset)
	if err != nil {
		// Drop whatever part of the frame made it to the file so the next
		// append starts at a frame boundary. If that cannot be confirmed the
		// tail is unknown.
		if terr := utils.TruncateAt(s.f, offset); terr != nil {
			s.broken.Store(true)
			return 0, 0, errors.Wrapf(ErrBroken, "%s: rollback after %v: %v", s.path, err, terr)
		}
		return 0, 0, errors.Wrap(err, "append")
	}

	if sync {
		if err := s.f.Sync(); err != nil {
			// After a failed fsync the page cache state is unknown.
			s.broken.Store(true)
			return 0, 0, errors.Wrapf(ErrBroken, "%s: sync: %v", s.path, err)
		}
	}

	s.size.Store(offset + int64(n))
	return offset, uint32(n), nil
}

// ReadAt returns length bytes starting at offset.
func (s *File) ReadAt(offset int64, length uint32) ([]byte, error) {
	buf := make([]byte, length)

	n, err := s.f.ReadAt(buf, offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}

	return nil, errors.Wrapf(err, "read %s at %d", filepath.Base(s.path), offset)
}

// Scan calls fn for every record in on-disk order.
//
// If the segment ends in the middle of a frame Scan returns a *TornError
// carrying the offset where the torn frame starts. A frame that fails to
// decode stops the scan with an error matching record.ErrCorruptRecord.
func (s *File) Scan(fn func(rec record.Record, offset int64, length uint32) error) error {
	size := s.size.Load()
	r := bufio.NewReaderSize(io.NewSectionReader(s.f, 0, size), 64*1024)

	var offset int64
	for {
		rec, n, err := record.Read(r, size-offset)
		if err == io.EOF {
			return nil
		}
		if err == record.ErrTruncated {
			return &TornError{Path: s.path, Offset: offset}
		}
		if err != nil {
			return errors.Wrapf(err, "%s at offset %d", filepath.Base(s.path), offset)
		}

		if err := fn(rec, offset, n); err != nil {
			return err
		}

		offset += int64(n)
	}
}

// Truncate cuts the segment at offset and syncs.
func (s *File) Truncate(offset int64) error {
	if err := utils.TruncateAt(s.f, offset); err != nil {
		return errors.Wrap(err, "truncate segment")
	}

	s.size.Store(offset)
	return nil
}

func (s *File) Sync() error {
	return errors.Wrap(s.f.Sync(), "sync segment")
}

// Commit renames a temporary compaction segment to its final name.
func (s *File) Commit() error {
	final := filepath.Join(filepath.Dir(s.path), FileName(s.id))
	if err := os.Rename(s.path, final); err != nil {
		return errors.Wrap(err, "commit segment")
	}

	s.path = final
	return nil
}

// Close closes the file handle. Closing twice is a no-op.
func (s *File) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return errors.Wrap(s.f.Close(), "close segment")
}

// Remove closes the segment and deletes its file. It may be retried after
// a failure.
func (s *File) Remove() error {
	s.Close()
	return errors.Wrap(os.Remove(s.path), "remove segment")
}

// TornError reports a frame cut short by the end of a segment.
type TornError struct {
	Path   string
	Offset int64
}

func (e *TornError) Error() string {
	return fmt.Sprintf("%s: torn record at offset %d", filepath.Base(e.Path), e.Offset)
}

func (e *TornError) Unwrap() error {
	return record.ErrTruncated
}

// SyncDir flushes directory entries (creates, renames, removes) to disk.
func SyncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrap(err, "open directory")
	}
	defer d.Close()

	return errors.Wrap(d.Sync(), "sync directory")
}
