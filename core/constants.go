package core

const (
	OneKilobyte = 1024
	OneMegabyte = 1024 * OneKilobyte // 1024 (1KB) * 1024 => 1MB
	OneGigabyte = 1024 * OneMegabyte

	DataDirName = "data" // Name of the segment directory inside a store

	DefaultMaxSegmentSize = 4 * OneMegabyte
	MinimumMaxSegmentSize = 4 * OneKilobyte
	MaximumMaxSegmentSize = 1 * OneGigabyte

	DefaultCompactionRatio = 0.4
	MinCompactionRatio     = 0.1
	MaxCompactionRatio     = 0.9

	DefaultMinCompactionSize = 1 * OneMegabyte
)
