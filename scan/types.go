package scan

import "github.com/hazyhaar/mdaudit/analyze"

// FileRecord is the analysis of one eligible file. When Error is set the
// file could not be read or decoded; all counters stay zero and the record
// contributes only to TotalFiles.
type FileRecord struct {
	RelativePath string `json:"relative_path"`
	Title        string `json:"title,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	analyze.Counts
	ExternalLinks []analyze.Link `json:"external_links,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Report aggregates all FileRecords of one scan. Records appear in
// traversal order (lexicographic by path), so repeated scans of an
// unchanged tree produce identical reports.
type Report struct {
	Root           string         `json:"root"`
	TotalFiles     int            `json:"total_files"`
	ErroredFiles   int            `json:"errored_files"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	Totals         analyze.Counts `json:"totals"`
	Files          []FileRecord   `json:"files"`
}
