// Package service orchestrates the mdaudit pipeline: directory scans,
// link audits, and scan history, exposed over HTTP and MCP transports.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/mdaudit/analyze"
	"github.com/hazyhaar/mdaudit/history"
	"github.com/hazyhaar/mdaudit/linkaudit"
	"github.com/hazyhaar/mdaudit/scan"
)

// Config configures the service.
type Config struct {
	// Root is the permitted root boundary for all scans.
	Root string `json:"root" yaml:"root"`

	// Extensions lists eligible file extensions (default: .md, .markdown).
	Extensions []string `json:"extensions" yaml:"extensions"`

	// MaxFileSize caps per-file reads (default: 10 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// ConvertHTML admits .html/.htm files via markdown conversion.
	ConvertHTML bool `json:"convert_html" yaml:"convert_html"`

	// HistoryKeep is how many reports the history store retains
	// (default: 50).
	HistoryKeep int `json:"history_keep" yaml:"history_keep"`

	// AuditWorkers is the link checker pool size (default: 10).
	AuditWorkers int `json:"audit_workers" yaml:"audit_workers"`

	// AuditTimeoutSeconds is the per-URL check timeout (default: 7).
	AuditTimeoutSeconds int `json:"audit_timeout_seconds" yaml:"audit_timeout_seconds"`
}

func (c *Config) defaults() {
	if c.HistoryKeep <= 0 {
		c.HistoryKeep = 50
	}
}

// Service is the mdaudit orchestrator.
type Service struct {
	scanner *scan.Scanner
	auditor *linkaudit.Auditor
	store   *history.Store
	logger  *slog.Logger
	config  *Config
	newID   func() string
}

// Option customises Service construction.
type Option func(*Service)

// WithHistory attaches a scan history store. Without it, reports are
// returned to the caller and forgotten.
func WithHistory(store *history.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithIDFunc overrides scan ID generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a Service. cfg.Root is required.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil || cfg.Root == "" {
		return nil, fmt.Errorf("service: permitted root is required")
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	auditCfg := linkaudit.Config{
		Workers: cfg.AuditWorkers,
		Timeout: time.Duration(cfg.AuditTimeoutSeconds) * time.Second,
		Logger:  logger,
	}

	svc := &Service{
		scanner: scan.New(scan.Config{
			Root:        cfg.Root,
			Extensions:  cfg.Extensions,
			MaxFileSize: cfg.MaxFileSize,
			ConvertHTML: cfg.ConvertHTML,
			Logger:      logger,
		}),
		auditor: linkaudit.New(auditCfg),
		logger:  logger,
		config:  cfg,
		newID:   newScanID,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ScanResult pairs a report with its history ID. ScanID is empty when the
// report was not persisted.
type ScanResult struct {
	ScanID string       `json:"scan_id,omitempty"`
	Report *scan.Report `json:"report"`
}

// Scan runs a full scan of rootPath and records the report in history.
// A history write failure does not fail the scan.
func (s *Service) Scan(ctx context.Context, rootPath string) (*ScanResult, error) {
	rep, err := s.scanner.Scan(ctx, rootPath)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{Report: rep}
	if s.store != nil {
		id := s.newID()
		if err := s.store.Put(ctx, id, rep); err != nil {
			s.logger.Warn("history write failed", "error", err)
		} else {
			res.ScanID = id
			if err := s.store.Prune(ctx, s.config.HistoryKeep); err != nil {
				s.logger.Warn("history prune failed", "error", err)
			}
		}
	}

	s.logger.Info("scan finished",
		"root", rep.Root,
		"files", rep.TotalFiles,
		"errored", rep.ErroredFiles,
		"scan_id", res.ScanID)
	return res, nil
}

// AuditLinks scans rootPath and checks every external link found.
// The intermediate report is not persisted.
func (s *Service) AuditLinks(ctx context.Context, rootPath string) (*linkaudit.Audit, error) {
	rep, err := s.scanner.Scan(ctx, rootPath)
	if err != nil {
		return nil, err
	}
	audit := s.auditor.Run(ctx, rep)
	s.logger.Info("link audit finished",
		"root", rep.Root,
		"links_checked", audit.TotalChecked)
	return audit, nil
}

// Search runs a targeted search (text, link prefix, or code fences) over
// rootPath. Search results are not persisted.
func (s *Service) Search(ctx context.Context, rootPath string, q scan.SearchQuery) (*scan.SearchReport, error) {
	rep, err := s.scanner.Search(ctx, rootPath, q)
	if err != nil {
		return nil, err
	}
	s.logger.Info("search finished",
		"root", rep.Root,
		"files", rep.FilesScanned,
		"matches", rep.TotalMatches)
	return rep, nil
}

// Analyze runs the document analyzer on raw text.
func (s *Service) Analyze(text string) *analyze.Result {
	return analyze.Inspect(text)
}

// History lists recent scans, newest first.
func (s *Service) History(ctx context.Context, n int) ([]history.Entry, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Recent(ctx, n)
}

// Report loads a stored scan report by ID.
func (s *Service) Report(ctx context.Context, id string) (*scan.Report, error) {
	if s.store == nil {
		return nil, history.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// newScanID produces IDs like "scan_1a2b3c4d5e6f7a8b".
func newScanID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic("service: crypto/rand failed: " + err.Error())
	}
	return "scan_" + hex.EncodeToString(buf)
}
