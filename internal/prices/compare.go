package prices

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Match is a retailer's best catalog hit for a search term.
type Match struct {
	Product  string
	Price    float64
	ImageURL string
}

// Retailer is anything that can price an ingredient.
type Retailer interface {
	Name() string
	FindProduct(ctx context.Context, term string) (*Match, error)
}

// Quote is one retailer's price for the compared item.
type Quote struct {
	Retailer string  `json:"retailer"`
	Product  string  `json:"product"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url,omitempty"`
}

// Comparer fans a search out across retailers and ranks the quotes.
type Comparer struct {
	retailers []Retailer
	timeout   time.Duration
}

func NewComparer(retailers ...Retailer) *Comparer {
	return &Comparer{retailers: retailers, timeout: 15 * time.Second}
}

// Compare queries every retailer concurrently and returns quotes sorted by
// ascending price. A retailer that errors or has no match is skipped; zero
// quotes is a valid result.
func (c *Comparer) Compare(ctx context.Context, item string) ([]Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		quotes []Quote
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, retailer := range c.retailers {
		g.Go(func() error {
			match, err := retailer.FindProduct(ctx, item)
			if err != nil {
				slog.WarnContext(ctx, "retailer price lookup failed", "retailer", retailer.Name(), "item", item, "error", err)
				return nil
			}
			if match == nil {
				return nil
			}
			mu.Lock()
			quotes = append(quotes, Quote{
				Retailer: retailer.Name(),
				Product:  match.Product,
				Price:    match.Price,
				ImageURL: match.ImageURL,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(quotes, func(a, b Quote) int {
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		default:
			return 0
		}
	})
	return quotes, nil
}
