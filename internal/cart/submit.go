package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"larder/internal/instacart"
)

// submitTimeout bounds the entire checkout round trip; if the retailer has
// not answered by then the submission counts as failed.
const submitTimeout = 60 * time.Second

var ErrUnknownStore = errors.New("no checkout configured for store")

// Checkout turns a local cart into a remote one at a retailer.
type Checkout interface {
	SubmitCart(ctx context.Context, store string, items []CartItem) (*Receipt, error)
}

// Receipt identifies the created remote cart.
type Receipt struct {
	CartID      string `json:"cart_id"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// Submitter routes cart submissions to per-store checkouts.
type Submitter struct {
	store     *Store
	checkouts map[string]Checkout
}

func NewSubmitter(store *Store, checkouts map[string]Checkout) *Submitter {
	return &Submitter{store: store, checkouts: checkouts}
}

// Submit sends a store's cart to its retailer and clears it on success.
func (s *Submitter) Submit(ctx context.Context, store string) (*Receipt, error) {
	checkout, ok := s.checkouts[store]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, store)
	}

	items := s.store.Items(store)
	if len(items) == 0 {
		return nil, errors.New("cart is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	receipt, err := checkout.SubmitCart(ctx, store, items)
	if err != nil {
		return nil, fmt.Errorf("submit cart to %s: %w", store, err)
	}

	slog.InfoContext(ctx, "cart submitted", "store", store, "items", len(items), "cart_id", receipt.CartID)

	s.store.Clear(store)
	s.store.publish(Event{Type: EventSubmitted, Store: store})
	return receipt, nil
}

// InstacartCheckout adapts the Instacart client to the Checkout interface.
type InstacartCheckout struct {
	Client *instacart.Client
}

func (c *InstacartCheckout) SubmitCart(ctx context.Context, store string, items []CartItem) (*Receipt, error) {
	submission := instacart.CartSubmission{Store: store}
	for _, item := range items {
		entry := instacart.CartItem{
			ProductID: item.UPC,
			Name:      item.Name,
			Unit:      item.Unit,
		}
		if item.Quantity != nil {
			entry.Quantity = *item.Quantity
		}
		submission.Items = append(submission.Items, entry)
	}

	result, err := c.Client.SubmitCart(ctx, submission)
	if err != nil {
		return nil, err
	}
	return &Receipt{CartID: result.CartID, CheckoutURL: result.CheckoutURL}, nil
}
