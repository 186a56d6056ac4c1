// Package pagination implements page-number/page-size windows over
// sequences using the peek-ahead-one technique: a page fetch asks for one
// item more than the page size so "has next page" comes back from the same
// query that produced the items, with no separate count.
package pagination

import (
	"context"
	"fmt"
	"sync"
)

// AllItems is the page-size escape value requesting every item. It is
// substituted with Limits.AllItemsSize rather than an unbounded fetch.
const AllItems = -1

// Limits bounds page inputs. Zero values fall back to the defaults.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxPageNumber   int
	AllItemsSize    int
}

// DefaultLimits mirrors the configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		DefaultPageSize: 10,
		MaxPageSize:     100,
		MaxPageNumber:   10_000,
		AllItemsSize:    10_000,
	}
}

func (l Limits) withDefaults() Limits {
	defaults := DefaultLimits()
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = defaults.DefaultPageSize
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = defaults.MaxPageSize
	}
	if l.MaxPageNumber <= 0 {
		l.MaxPageNumber = defaults.MaxPageNumber
	}
	if l.AllItemsSize <= 0 {
		l.AllItemsSize = defaults.AllItemsSize
	}
	return l
}

// PageInput is a requested window: 1-based page number and page size.
type PageInput struct {
	Number int
	Size   int
}

// DefaultPage is the window used when a resolver receives no page input.
func DefaultPage(limits Limits) PageInput {
	limits = limits.withDefaults()
	return PageInput{Number: 1, Size: limits.DefaultPageSize}
}

// Clamp forces the input into the configured bounds. A zero input becomes
// the default page; Size == AllItems becomes the configured all-items cap.
func (p PageInput) Clamp(limits Limits) PageInput {
	limits = limits.withDefaults()
	if p.Size == AllItems {
		p.Size = limits.AllItemsSize
	}
	if p.Size <= 0 {
		p.Size = limits.DefaultPageSize
	}
	if p.Size > limits.MaxPageSize && p.Size != limits.AllItemsSize {
		p.Size = limits.MaxPageSize
	}
	if p.Number <= 0 {
		p.Number = 1
	}
	if p.Number > limits.MaxPageNumber {
		p.Number = limits.MaxPageNumber
	}
	return p
}

// Offset is the number of items preceding this window.
func (p PageInput) Offset() int {
	return (p.Number - 1) * p.Size
}

// Key is the stable fingerprint fragment for this input.
func (p PageInput) Key() string {
	return fmt.Sprintf("page=%d:%d", p.Number, p.Size)
}

// CountFunc lazily produces the total number of items in the underlying
// (filtered) sequence.
type CountFunc func(ctx context.Context) (int, error)

// Page is one resolved window over a sequence. Totals are computed only
// when asked for, since they require an extra count operation.
type Page[T any] struct {
	Items       []T
	Number      int
	Size        int
	HasNext     bool
	HasPrevious bool

	countOnce sync.Once
	countFn   CountFunc
	total     int
	countErr  error
}

// NewPage builds a page from items already trimmed to the window.
func NewPage[T any](items []T, in PageInput, hasNext bool, countFn CountFunc) *Page[T] {
	return &Page[T]{
		Items:       items,
		Number:      in.Number,
		Size:        in.Size,
		HasNext:     hasNext,
		HasPrevious: in.Number > 1,
		countFn:     countFn,
	}
}

// PageFromPeeked builds a page from a fetch that asked for size+1 items.
// When the extra item came back it is dropped and HasNext is set.
func PageFromPeeked[T any](items []T, in PageInput, countFn CountFunc) *Page[T] {
	hasNext := len(items) > in.Size
	if hasNext {
		items = items[:in.Size]
	}
	return NewPage(items, in, hasNext, countFn)
}

// TotalItems returns the total item count of the full sequence, issuing
// the count operation at most once.
func (p *Page[T]) TotalItems(ctx context.Context) (int, error) {
	if p.countFn == nil {
		return 0, fmt.Errorf("page has no count source")
	}
	p.countOnce.Do(func() {
		p.total, p.countErr = p.countFn(ctx)
	})
	return p.total, p.countErr
}

// TotalPages derives the page count from TotalItems.
func (p *Page[T]) TotalPages(ctx context.Context) (int, error) {
	total, err := p.TotalItems(ctx)
	if err != nil {
		return 0, err
	}
	if p.Size <= 0 {
		return 0, nil
	}
	return (total + p.Size - 1) / p.Size, nil
}

// Sequence is a pageable source of items.
type Sequence[T any] interface {
	// Slice returns up to limit items starting at offset.
	Slice(ctx context.Context, offset, limit int) ([]T, error)
	// Count returns the total number of items.
	Count(ctx context.Context) (int, error)
}

// Paginate fetches one window of seq using the peek-ahead rule. At most
// size+1 items are fetched; no count query is issued unless the caller
// later asks for totals.
func Paginate[T any](ctx context.Context, seq Sequence[T], in PageInput, limits Limits) (*Page[T], error) {
	in = in.Clamp(limits)
	items, err := seq.Slice(ctx, in.Offset(), in.Size+1)
	if err != nil {
		return nil, err
	}
	return PageFromPeeked(items, in, seq.Count), nil
}
