// Package scan walks a directory tree bounded to a permitted root and
// produces an aggregate analysis report over the markup documents it finds.
//
// Traversal is read-only, sequential, and deterministic. A single file
// failure never aborts a scan: the file is recorded with an error marker
// and zero counters. Only root-level problems (missing directory, path
// escaping the permitted boundary) fail the whole operation.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/mdaudit/analyze"
	"github.com/hazyhaar/mdaudit/safepath"
)

// Config configures a Scanner.
type Config struct {
	// Root is the permitted root boundary. Scan requests resolving outside
	// it are rejected.
	Root string `json:"root" yaml:"root"`

	// Extensions lists eligible file extensions (default: .md, .markdown).
	Extensions []string `json:"extensions" yaml:"extensions"`

	// MaxFileSize is the largest file read into memory (default: 10 MB).
	// Oversized files are recorded as errored, not skipped.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// ConvertHTML also admits .html/.htm files, converted to markdown
	// before analysis.
	ConvertHTML bool `json:"convert_html" yaml:"convert_html"`

	// Logger for debug/warn messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".md", ".markdown"}
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 10 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Scanner walks directory trees and analyzes eligible documents.
type Scanner struct {
	cfg    Config
	exts   map[string]bool
	conv   *htmlConverter
	logger *slog.Logger
}

// New creates a Scanner with the given configuration.
func New(cfg Config) *Scanner {
	cfg.defaults()
	exts := make(map[string]bool, len(cfg.Extensions)+2)
	for _, e := range cfg.Extensions {
		exts[strings.ToLower(e)] = true
	}
	var conv *htmlConverter
	if cfg.ConvertHTML {
		exts[".html"] = true
		exts[".htm"] = true
		conv = newHTMLConverter()
	}
	return &Scanner{
		cfg:    cfg,
		exts:   exts,
		conv:   conv,
		logger: cfg.Logger,
	}
}

// Scan analyzes every eligible file under rootPath and returns the
// aggregate report. rootPath may be absolute or relative to the permitted
// root; either way it must canonicalize to a directory inside the
// boundary, or ErrInvalidPath is returned.
//
// The walk runs to completion once started; callers needing cancellation
// abandon the result. ctx is accepted for interface symmetry with the rest
// of the pipeline.
func (s *Scanner) Scan(ctx context.Context, rootPath string) (*Report, error) {
	resolved, err := s.resolveRoot(rootPath)
	if err != nil {
		return nil, err
	}

	rep := &Report{Root: resolved}

	err = s.walkEligible(resolved, func(path, rel, ext string) {
		rec := s.processFile(path, rel, ext)
		rep.Files = append(rep.Files, rec)
		rep.TotalFiles++
		if rec.Error != "" {
			rep.ErroredFiles++
			return
		}
		rep.TotalSizeBytes += rec.SizeBytes
		rep.Totals.Add(rec.Counts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	s.logger.Debug("scan complete",
		"root", resolved,
		"files", rep.TotalFiles,
		"errored", rep.ErroredFiles,
		"words", rep.Totals.WordCount)
	return rep, nil
}

// resolveRoot canonicalizes rootPath against the permitted root and checks
// that it is a readable directory.
func (s *Scanner) resolveRoot(rootPath string) (string, error) {
	resolved, err := safepath.Resolve(s.cfg.Root, rootPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, rootPath)
	}
	return resolved, nil
}

// walkEligible calls visit for every eligible file under resolved, in
// lexicographic order. rel is slash-separated and relative to resolved.
func (s *Scanner) walkEligible(resolved string, visit func(path, rel, ext string)) error {
	return filepath.WalkDir(resolved, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == resolved {
				return walkErr
			}
			// Unreadable subtree: not an eligible file, keep going.
			s.logger.Warn("skipping unreadable entry", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != resolved && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		// Regular files only: symlinked files are never followed, so a
		// link pointing outside the boundary cannot smuggle content in.
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !s.exts[ext] {
			return nil
		}

		rel, relErr := filepath.Rel(resolved, path)
		if relErr != nil {
			return nil
		}
		visit(path, filepath.ToSlash(rel), ext)
		return nil
	})
}

// processFile reads and analyzes a single file. Failures are folded into
// the returned record, never propagated.
func (s *Scanner) processFile(path, rel, ext string) FileRecord {
	text, htmlTitle, size, err := s.readText(path, ext)
	if err != nil {
		return errRecord(rel, err.Error())
	}

	res := analyze.Inspect(text)
	title := res.Title
	if title == "" {
		title = htmlTitle
	}

	var external []analyze.Link
	for _, l := range res.Links {
		if l.External {
			external = append(external, l)
		}
	}

	return FileRecord{
		RelativePath:  rel,
		Title:         title,
		SizeBytes:     size,
		Counts:        res.Counts,
		ExternalLinks: external,
	}
}

// readText loads one file and normalizes it to markdown text. For HTML
// documents the second return carries the <title> content; size is always
// the on-disk byte count.
func (s *Scanner) readText(path, ext string) (string, string, int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", "", 0, fmt.Errorf("stat failed: %v", err)
	}
	if info.Size() > s.cfg.MaxFileSize {
		return "", "", 0, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), s.cfg.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", 0, fmt.Errorf("read failed: %v", err)
	}
	if !utf8.Valid(data) {
		return "", "", 0, errors.New("content is not valid UTF-8 text")
	}

	text := string(data)
	var htmlTitle string
	if ext == ".html" || ext == ".htm" {
		md, title, convErr := s.conv.toMarkdown(data)
		if convErr != nil {
			return "", "", 0, fmt.Errorf("html conversion failed: %v", convErr)
		}
		text = md
		htmlTitle = title
	}
	return text, htmlTitle, int64(len(data)), nil
}

func errRecord(rel, msg string) FileRecord {
	return FileRecord{RelativePath: rel, Error: msg}
}
