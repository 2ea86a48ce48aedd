package core

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Options tunes a Store. The zero value is not valid; start from
// DefaultOptions.
type Options struct {
	// MaxSegmentSize is the size at which the active segment is sealed and
	// a new one is started.
	MaxSegmentSize int64

	// CompactionRatio is the stale/total byte ratio above which compaction
	// runs automatically.
	CompactionRatio float64

	// MinCompactionSize is the total log size below which automatic
	// compaction never runs.
	MinCompactionSize int64

	AutoCompact bool

	// Compress stores values s2-compressed when that makes them smaller.
	// Logs written with and without it can be mixed freely.
	Compress bool

	// StrictRemove makes Remove of an absent key fail with ErrKeyNotFound.
	// When false it is a no-op. Either way nothing is appended.
	StrictRemove bool

	// Registerer receives the store's Prometheus collectors. Nil keeps them
	// unregistered.
	Registerer prometheus.Registerer
}

func DefaultOptions() Options {
	return Options{
		MaxSegmentSize:    DefaultMaxSegmentSize,
		CompactionRatio:   DefaultCompactionRatio,
		MinCompactionSize: DefaultMinCompactionSize,
		AutoCompact:       true,
		StrictRemove:      true,
	}
}

type Option func(*Options)

func WithMaxSegmentSize(size int64) Option {
	return func(o *Options) {
		o.MaxSegmentSize = size
	}
}

func WithCompactionRatio(ratio float64) Option {
	return func(o *Options) {
		o.CompactionRatio = ratio
	}
}

func WithMinCompactionSize(size int64) Option {
	return func(o *Options) {
		o.MinCompactionSize = size
	}
}

func WithAutoCompact(enabled bool) Option {
	return func(o *Options) {
		o.AutoCompact = enabled
	}
}

func WithCompression(enabled bool) Option {
	return func(o *Options) {
		o.Compress = enabled
	}
}

func WithStrictRemove(strict bool) Option {
	return func(o *Options) {
		o.StrictRemove = strict
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.Registerer = reg
	}
}

func (o Options) validate() error {
	if o.MaxSegmentSize < MinimumMaxSegmentSize || o.MaxSegmentSize > MaximumMaxSegmentSize {
		return errors.Errorf("max segment size %d out of range [%d, %d]",
			o.MaxSegmentSize, MinimumMaxSegmentSize, MaximumMaxSegmentSize)
	}
	if o.CompactionRatio < MinCompactionRatio || o.CompactionRatio > MaxCompactionRatio {
		return errors.Errorf("compaction ratio %.2f out of range [%.2f, %.2f]",
			o.CompactionRatio, MinCompactionRatio, MaxCompactionRatio)
	}
	if o.MinCompactionSize < 0 {
		return errors.Errorf("negative min compaction size %d", o.MinCompactionSize)
	}
	return nil
}
