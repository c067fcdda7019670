package reddit

import (
	"context"

	"github.com/ytget/dit/internal/model"
)

// PageFetcher fetches one page of saved items
type PageFetcher interface {
	FetchSavedPage(ctx context.Context, cursor string) (Page, error)
}

// ItemListener observes every item as soon as its page arrives
type ItemListener func(model.SavedItem)

// Paginator drains a saved-items listing across pages
type Paginator struct {
	fetcher   PageFetcher
	pageLimit int
	listeners []ItemListener
}

// PaginatorOption configures a Paginator
type PaginatorOption func(*Paginator)

// WithPageLimit stops after n pages. Zero drains until the API has no next cursor.
func WithPageLimit(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.pageLimit = n
		}
	}
}

// WithItemListener registers a listener; listeners run in registration order
func WithItemListener(fn ItemListener) PaginatorOption {
	return func(p *Paginator) {
		if fn != nil {
			p.listeners = append(p.listeners, fn)
		}
	}
}

// NewPaginator creates a paginator over fetcher
func NewPaginator(fetcher PageFetcher, opts ...PaginatorOption) *Paginator {
	p := &Paginator{fetcher: fetcher}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// All fetches every page, notifying listeners per item in server order, and
// returns the accumulated items. Any page failure aborts and discards what was
// accumulated.
func (p *Paginator) All(ctx context.Context) ([]model.SavedItem, error) {
	var (
		items  []model.SavedItem
		cursor string
	)

	for pages := 0; p.pageLimit == 0 || pages < p.pageLimit; pages++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := p.fetcher.FetchSavedPage(ctx, cursor)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			for _, fn := range p.listeners {
				fn(item)
			}
			items = append(items, item)
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return items, nil
}
