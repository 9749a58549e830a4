package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/mdaudit/analyze"
)

// SearchQuery selects one targeted search over the scanned tree. Exactly
// one mode applies per query, checked in order: Text, LinkPrefix, then the
// code-fence filters.
type SearchQuery struct {
	// Text finds lines containing this substring, case-insensitively.
	Text string `json:"text,omitempty"`

	// LinkPrefix finds external links whose URL starts with this prefix.
	LinkPrefix string `json:"link_prefix,omitempty"`

	// Language finds fenced code blocks opened with this language tag.
	Language string `json:"language,omitempty"`

	// Untagged finds fenced code blocks opened with no language tag.
	Untagged bool `json:"untagged,omitempty"`
}

func (q SearchQuery) empty() bool {
	return q.Text == "" && q.LinkPrefix == "" && q.Language == "" && !q.Untagged
}

// Match is one per-line hit inside a document. Line is 1-based.
type Match struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchFile groups the hits of one document. Matches is set for text and
// code-fence searches, Links for link-prefix searches.
type SearchFile struct {
	RelativePath string         `json:"relative_path"`
	Title        string         `json:"title,omitempty"`
	Matches      []Match        `json:"matches,omitempty"`
	Links        []analyze.Link `json:"links,omitempty"`
}

// SearchReport lists the documents with at least one hit.
type SearchReport struct {
	Root         string       `json:"root"`
	Query        SearchQuery  `json:"query"`
	FilesScanned int          `json:"files_scanned"`
	TotalMatches int          `json:"total_matches"`
	Files        []SearchFile `json:"files"`
}

// Search walks rootPath exactly like Scan and applies the query to every
// eligible file. Unreadable files are skipped silently; only files with at
// least one hit appear in the report.
func (s *Scanner) Search(ctx context.Context, rootPath string, q SearchQuery) (*SearchReport, error) {
	if q.empty() {
		return nil, ErrInvalidQuery
	}
	resolved, err := s.resolveRoot(rootPath)
	if err != nil {
		return nil, err
	}

	rep := &SearchReport{Root: resolved, Query: q}
	err = s.walkEligible(resolved, func(path, rel, ext string) {
		rep.FilesScanned++
		text, htmlTitle, _, readErr := s.readText(path, ext)
		if readErr != nil {
			s.logger.Warn("skipping unreadable file", "path", path, "error", readErr)
			return
		}

		sf := SearchFile{RelativePath: rel}
		switch {
		case q.Text != "":
			sf.Matches = findLines(text, q.Text)
		case q.LinkPrefix != "":
			for _, l := range analyze.Inspect(text).Links {
				if l.External && strings.HasPrefix(l.URL, q.LinkPrefix) {
					sf.Links = append(sf.Links, l)
				}
			}
		default:
			sf.Matches = findFences(text, q.Language, q.Untagged)
		}

		hits := len(sf.Matches) + len(sf.Links)
		if hits == 0 {
			return
		}
		sf.Title = analyze.Inspect(text).Title
		if sf.Title == "" {
			sf.Title = htmlTitle
		}
		rep.TotalMatches += hits
		rep.Files = append(rep.Files, sf)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	s.logger.Debug("search complete",
		"root", resolved,
		"files", rep.FilesScanned,
		"matches", rep.TotalMatches)
	return rep, nil
}

// findLines returns the lines containing needle, case-insensitively.
func findLines(text, needle string) []Match {
	needle = strings.ToLower(needle)
	var matches []Match
	for i, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), needle) {
			matches = append(matches, Match{Line: i + 1, Text: strings.TrimSpace(line)})
		}
	}
	return matches
}

// findFences returns the opening fence lines of code blocks matching the
// language filter. Only opening fences are reported; tilde fences count
// the same as backtick fences.
func findFences(text, lang string, untagged bool) []Match {
	lang = strings.ToLower(strings.TrimSpace(lang))
	var matches []Match
	open := false
	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") && !strings.HasPrefix(trimmed, "~~~") {
			continue
		}
		if open {
			open = false
			continue
		}
		open = true
		tag := strings.ToLower(strings.TrimSpace(trimmed[3:]))
		if (untagged && tag == "") || (lang != "" && tag == lang) {
			matches = append(matches, Match{Line: i + 1, Text: trimmed})
		}
	}
	return matches
}
