package store

import "time"

// FileRecord is an indexed source file. ID is stable for the lifetime of
// the path; content changes update the hash but never the ID.
type FileRecord struct {
	ID        int64
	Path      string
	Filename  string
	Content   string
	Hash      string
	Language  string
	SizeBytes int64
	IndexedAt time.Time
}

// Symbol is a named declaration extracted from a file.
type Symbol struct {
	ID        int64
	FileID    int64
	Name      string
	Kind      string
	StartLine int
	EndLine   int
}

// FTSRow is one ranked full-text hit. Score is the raw BM25 value
// (negative, more negative = better).
type FTSRow struct {
	FileID int64
	Path   string
	Score  float64
}

// RelatedFile is a file ranked by how many symbol names it shares with
// a source file.
type RelatedFile struct {
	FileID        int64
	Path          string
	SharedSymbols int
}

// Stats summarizes the index contents.
type Stats struct {
	FileCount     int
	TotalBytes    int64
	SymbolCount   int
	TrigramCount  int
	Languages     map[string]int
	LastIndexedAt time.Time
}

// LargeFile is a path with its size, used by detailed stats.
type LargeFile struct {
	Path      string
	SizeBytes int64
}
