package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pitchside/footstats-client/pkg/client"
)

// PageFunc fetches a single page (1-based) of one listing. Callers
// close over the fixed query parameters and vary only the page.
type PageFunc func(ctx context.Context, page int) (*client.Envelope, error)

// Config controls the walker's worker pool.
type Config struct {
	// MaxConcurrency caps the number of parallel page fetches.
	MaxConcurrency int
	// Timeout bounds each page fetch.
	Timeout time.Duration
	// Logger receives progress events; the zero value stays silent.
	Logger zerolog.Logger
}

// DefaultConfig returns defaults sized for the upstream's per-minute quota.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// Walker fetches all pages of one listing through a PageFunc.
type Walker struct {
	fetch  PageFunc
	config Config
	logger zerolog.Logger
}

// NewWalker creates a walker. Zero config fields fall back to defaults.
func NewWalker(fetch PageFunc, config Config) *Walker {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Walker{
		fetch:  fetch,
		config: config,
		logger: config.Logger,
	}
}

type pageResult struct {
	page int
	env  *client.Envelope
	err  error
}

// FetchAll fetches every page of the listing. Page 1 is fetched first
// to learn the total, the remaining pages are spread across the worker
// pool. The first failure cancels the outstanding fetches; the pages
// fetched so far are returned alongside the error.
func (w *Walker) FetchAll(ctx context.Context) (map[int]*client.Envelope, error) {
	start := time.Now()

	first, err := w.fetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching first page: %w", err)
	}

	total := first.Paging.Total
	if total <= 1 {
		w.logger.Debug().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Page walk complete")
		return map[int]*client.Envelope{1: first}, nil
	}

	w.logger.Info().
		Int("total_pages", total).
		Int("workers", w.config.MaxConcurrency).
		Msg("Starting page walk")

	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pages := make(chan int, total-1)
	for page := 2; page <= total; page++ {
		pages <- page
	}
	close(pages)

	// Buffered to the page count so workers never block on the collector.
	results := make(chan pageResult, total-1)

	workers := w.config.MaxConcurrency
	if workers > total-1 {
		workers = total - 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go w.worker(walkCtx, pages, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[int]*client.Envelope, total)
	out[1] = first

	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("fetching page %d: %w", r.page, r.err)
				cancel()
			}
			continue
		}
		out[r.page] = r.env

		if len(out)%10 == 0 {
			w.logger.Debug().
				Int("fetched", len(out)).
				Int("total", total).
				Msg("Page walk progress")
		}
	}

	if firstErr != nil {
		w.logger.Warn().
			Err(firstErr).
			Int("fetched", len(out)).
			Int("total", total).
			Msg("Page walk incomplete")
		return out, firstErr
	}

	w.logger.Info().
		Int("pages", len(out)).
		Dur("duration", time.Since(start)).
		Msg("Page walk complete")
	return out, nil
}

func (w *Walker) worker(ctx context.Context, pages <-chan int, results chan<- pageResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for page := range pages {
		if ctx.Err() != nil {
			return
		}

		env, err := w.fetchPage(ctx, page)
		results <- pageResult{page: page, env: env, err: err}
	}
}

func (w *Walker) fetchPage(ctx context.Context, page int) (*client.Envelope, error) {
	pageCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()
	return w.fetch(pageCtx, page)
}

// MergeItems flattens the response arrays of fetched pages into one
// item list in page order. Pages missing from the map are skipped, so
// partial walk results merge cleanly.
func MergeItems(pages map[int]*client.Envelope) ([]json.RawMessage, error) {
	nums := make([]int, 0, len(pages))
	for page := range pages {
		nums = append(nums, page)
	}
	sort.Ints(nums)

	var items []json.RawMessage
	for _, page := range nums {
		env := pages[page]
		if env == nil || len(env.Response) == 0 {
			continue
		}

		var chunk []json.RawMessage
		if err := env.Decode(&chunk); err != nil {
			return nil, fmt.Errorf("decoding page %d: %w", page, err)
		}
		items = append(items, chunk...)
	}
	return items, nil
}
