// Package checker provides optional acceptance checks run after an answer
// passes the built-in criteria: a reachability check for extracted links and
// a model-graded answer review.
package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

// ErrRejected wraps every checker rejection.
var ErrRejected = errors.New("checker rejected answer")

// LinkConfig tunes the link checker.
type LinkConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
	Concurrency       int           `yaml:"concurrency" json:"concurrency" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
}

// Link checker defaults.
const (
	DefaultLinkTimeout     = 10 * time.Second
	DefaultLinkConcurrency = 4
	DefaultLinkRate        = 8
	defaultUserAgent       = "go-questionnaire-linkcheck/1.0"
)

// LinkChecker rejects answers containing unreachable links.
type LinkChecker struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     LinkConfig
	logger  *slog.Logger
}

// NewLinkChecker returns a LinkChecker. A nil client gets one with
// cfg.Timeout.
func NewLinkChecker(cfg LinkConfig, client *http.Client) *LinkChecker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLinkTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultLinkConcurrency
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultLinkRate
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &LinkChecker{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Concurrency),
		cfg:     cfg,
		logger:  slog.Default().With("component", "linkcheck"),
	}
}

// Name implements orchestrator.Checker.
func (c *LinkChecker) Name() string { return "link checker" }

// Check probes every link concurrently. The answer is rejected when any link
// fails; the rejection lists each failing URL.
func (c *LinkChecker) Check(ctx context.Context, _, _ string, links []domain.Link) error {
	if len(links) == 0 {
		return nil
	}

	failures := make([]string, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, l := range links {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}
			if err := c.probe(gctx, l.URL); err != nil {
				c.logger.Debug("link unreachable", "url", l.URL, "error", err)
				failures[i] = fmt.Sprintf("%s (%v)", l.URL, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var bad []string
	for _, f := range failures {
		if f != "" {
			bad = append(bad, f)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return fmt.Errorf("%w: unreachable links: %s", ErrRejected, strings.Join(bad, "; "))
}

// probe sends HEAD and falls back to GET when the server rejects HEAD.
func (c *LinkChecker) probe(ctx context.Context, url string) error {
	status, err := c.do(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented || status == http.StatusForbidden) {
		status, err = c.do(ctx, http.MethodGet, url)
	}
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("status %d", status)
	}
	return nil
}

func (c *LinkChecker) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}
