package prices

import (
	"context"

	"larder/internal/instacart"
	"larder/internal/kroger"
)

// KrogerRetailer prices items against the Kroger catalog, optionally scoped
// to a store location.
type KrogerRetailer struct {
	Client     *kroger.Client
	LocationID string
}

func (k *KrogerRetailer) Name() string { return "kroger" }

func (k *KrogerRetailer) FindProduct(ctx context.Context, term string) (*Match, error) {
	results, err := k.Client.SearchProducts(ctx, term, k.LocationID)
	if err != nil {
		return nil, err
	}
	if len(results.Products) == 0 {
		return nil, nil
	}
	product := results.Products[0]
	return &Match{
		Product:  product.Description,
		Price:    product.Price(),
		ImageURL: kroger.ImageURL(product.UPC),
	}, nil
}

// InstacartRetailer prices items against the Instacart catalog.
type InstacartRetailer struct {
	Client *instacart.Client
}

func (i *InstacartRetailer) Name() string { return "instacart" }

func (i *InstacartRetailer) FindProduct(ctx context.Context, term string) (*Match, error) {
	results, err := i.Client.SearchProducts(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(results.Products) == 0 {
		return nil, nil
	}
	product := results.Products[0]
	return &Match{
		Product:  product.Name,
		Price:    product.Price,
		ImageURL: product.ImageURL,
	}, nil
}
