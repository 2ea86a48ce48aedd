// Package core is the storage engine: a Bitcask-style log-structured hash
// table.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                            Store                              │
//	├───────────────────────────────────────────────────────────────┤
//	│  Write Path:  Set/Remove → record.Encode → active segment     │
//	│               (append + fsync) → KeyDir.Put / KeyDir.Delete   │
//	│  Read Path:   Get → KeyDir.Get → segment.ReadAt → Decode      │
//	├───────────────────────────────────────────────────────────────┤
//	│  Rollover:    active segment ≥ MaxSegmentSize → new segment   │
//	│  Compaction:  live records → merged_N.data → bk_N.data, swap  │
//	└───────────────────────────────────────────────────────────────┘
//
// On disk a store is a directory holding a LOCK file and a data/
// subdirectory of segments named bk_<id>.data, where ids grow with time.
// Open replays every segment in id order to rebuild the KeyDir.
package core
