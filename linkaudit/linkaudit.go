// Package linkaudit checks the external links inventoried by a scan and
// classifies each URL by HTTP status category. Checks run on a bounded
// worker pool; every URL is fetched at most once per audit regardless of
// how many files reference it.
package linkaudit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hazyhaar/mdaudit/safepath"
	"github.com/hazyhaar/mdaudit/scan"
)

// Status categories for checked URLs.
const (
	CategoryTimeout    = "timeout"
	CategoryConnError  = "connection_error"
	CategoryInvalidURL = "invalid_url"
)

// Config configures an Auditor.
type Config struct {
	// Workers is the number of concurrent link checkers (default: 10).
	Workers int `json:"workers" yaml:"workers"`

	// Timeout per URL check (default: 7s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent sent with requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// URLValidator rejects URLs before any request is made (SSRF
	// prevention). Default: safepath.ValidateURL.
	URLValidator func(string) error `json:"-" yaml:"-"`

	// Logger for debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 7 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "mdaudit/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = safepath.ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Status is the check outcome for one link occurrence.
type Status struct {
	URL        string `json:"url"`
	Text       string `json:"text,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Category   string `json:"category"`
}

// FileResult groups checked links per source file.
type FileResult struct {
	RelativePath string   `json:"relative_path"`
	Title        string   `json:"title,omitempty"`
	Links        []Status `json:"links"`
}

// Audit is the result of checking every external link of a scan.
type Audit struct {
	TotalChecked int            `json:"total_links_checked"`
	StatusCounts map[string]int `json:"status_counts"`
	Files        []FileResult   `json:"files,omitempty"`
}

// Auditor checks external link health.
type Auditor struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// New creates an Auditor. Redirect targets are re-validated so a benign
// URL cannot bounce the checker into a private address.
func New(cfg Config) *Auditor {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Auditor{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		logger: cfg.Logger,
	}
}

// Run checks every distinct external URL in rep and maps the results back
// to the files that reference them. Image references are audited the same
// way as plain links.
func (a *Auditor) Run(ctx context.Context, rep *scan.Report) *Audit {
	unique := make(map[string]bool)
	for _, f := range rep.Files {
		for _, l := range f.ExternalLinks {
			unique[l.URL] = true
		}
	}

	results := a.checkAll(ctx, unique)

	audit := &Audit{
		TotalChecked: len(results),
		StatusCounts: make(map[string]int),
	}
	for _, st := range results {
		audit.StatusCounts[st.Category]++
	}

	for _, f := range rep.Files {
		if len(f.ExternalLinks) == 0 {
			continue
		}
		fr := FileResult{RelativePath: f.RelativePath, Title: f.Title}
		for _, l := range f.ExternalLinks {
			st, ok := results[l.URL]
			if !ok {
				continue
			}
			st.Text = l.Text
			if l.Image && st.Text == "" {
				st.Text = "[image]"
			}
			fr.Links = append(fr.Links, st)
		}
		audit.Files = append(audit.Files, fr)
	}
	return audit
}

// checkAll fans the URL set out to the worker pool.
func (a *Auditor) checkAll(ctx context.Context, urls map[string]bool) map[string]Status {
	jobs := make(chan string)
	out := make(chan Status)

	workers := a.cfg.Workers
	if len(urls) < workers {
		workers = len(urls)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range jobs {
				out <- a.check(ctx, url)
			}
		}()
	}
	go func() {
		for url := range urls {
			jobs <- url
		}
		close(jobs)
		wg.Wait()
		close(out)
	}()

	results := make(map[string]Status, len(urls))
	for st := range out {
		results[st.URL] = st
	}
	return results
}

// check classifies a single URL.
func (a *Auditor) check(ctx context.Context, url string) Status {
	if err := a.cfg.URLValidator(url); err != nil {
		return Status{URL: url, Category: CategoryInvalidURL}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Status{URL: url, Category: CategoryInvalidURL}
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout(),
			errors.Is(err, context.DeadlineExceeded):
			return Status{URL: url, Category: CategoryTimeout}
		default:
			a.logger.Debug("link check failed", "url", url, "error", err)
			return Status{URL: url, Category: CategoryConnError}
		}
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	return Status{
		URL:        url,
		StatusCode: resp.StatusCode,
		Category:   fmt.Sprintf("%dxx", resp.StatusCode/100),
	}
}
