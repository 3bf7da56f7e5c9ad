package tagging

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopbulk/shopbulk/internal/admin"
)

// Collector defaults.
const (
	defaultPageSize  = 250
	defaultPageDelay = 500 * time.Millisecond
)

// ProductSearcher fetches one page of products. *admin.Client implements it.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string, pageSize int, cursor string) (*admin.ProductPage, error)
}

// Collector exhaustively retrieves all products matching a query via
// cursor pagination. Page fetches are strictly sequential (cursor
// advancement requires the prior page's response), with a fixed delay
// between pages to stay under the platform's rate-limit budget.
type Collector struct {
	searcher  ProductSearcher
	pageSize  int
	pageDelay time.Duration
	logger    *slog.Logger

	// sleepFunc waits between page fetches. Tests override this to avoid
	// real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a Collector. pageSize <= 0 and pageDelay <= 0
// select the defaults.
func NewCollector(searcher ProductSearcher, pageSize int, pageDelay time.Duration, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}

	return &Collector{
		searcher:  searcher,
		pageSize:  pageSize,
		pageDelay: pageDelay,
		logger:    logger,
		sleepFunc: sleepCtx,
	}
}

// CollectAll returns the complete product set matching query, in arrival
// order. Any page failure aborts the whole collection with a *FetchError:
// downstream idempotency accounting assumes totality, so a partial set is
// never returned. An empty result set is valid and yields an empty list.
func (c *Collector) CollectAll(ctx context.Context, query string) ([]admin.Product, error) {
	c.logger.Info("collecting products",
		slog.String("query", query),
	)

	var all []admin.Product

	cursor := ""
	page := 1

	for {
		pp, err := c.searcher.SearchProducts(ctx, query, c.pageSize, cursor)
		if err != nil {
			return nil, &FetchError{Page: page, Err: err}
		}

		all = append(all, pp.Products...)

		c.logger.Debug("accumulated products",
			slog.Int("page", page),
			slog.Int("page_count", len(pp.Products)),
			slog.Int("total", len(all)),
		)

		if !pp.HasNextPage {
			c.logger.Info("collection complete",
				slog.Int("total", len(all)),
				slog.Int("pages", page),
			)

			return all, nil
		}

		// Pace between pages, never after the final one.
		if err := c.sleepFunc(ctx, c.pageDelay); err != nil {
			return nil, &FetchError{Page: page, Err: err}
		}

		cursor = pp.EndCursor
		page++
	}
}

// sleepCtx waits for the given duration or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
