package kroger

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProductResults is the typed response for a Kroger product search.
type ProductResults struct {
	Products []Product `json:"data"`
	Total    int       `json:"total"`
}

// Product is the subset of catalog fields the app surfaces.
type Product struct {
	ProductID   string        `json:"productId"`
	UPC         string        `json:"upc"`
	Brand       string        `json:"brand"`
	Description string        `json:"description"`
	Categories  []string      `json:"categories"`
	Items       []ProductItem `json:"items"`
}

// ProductItem carries per-size pricing and availability.
type ProductItem struct {
	ItemID string       `json:"itemId"`
	Size   string       `json:"size"`
	Price  ProductPrice `json:"price"`
}

type ProductPrice struct {
	Regular float64 `json:"regular"`
	Promo   float64 `json:"promo"`
}

// Price returns the effective price: promo when set, regular otherwise.
func (p *Product) Price() float64 {
	if len(p.Items) == 0 {
		return 0
	}
	price := p.Items[0].Price
	if price.Promo > 0 {
		return price.Promo
	}
	return price.Regular
}

// ImageURL builds the medium front product image URL from a UPC. Kroger keys
// images on 13-digit codes, so shorter UPCs are zero-padded on the left.
func ImageURL(upc string) string {
	upc = strings.TrimSpace(upc)
	if upc == "" {
		return ""
	}
	for len(upc) < 13 {
		upc = "0" + upc
	}
	return "https://www.kroger.com/product/images/medium/front/" + upc
}

// ParseProductResults unmarshals product search payloads from wrapped or bare
// array shapes.
func ParseProductResults(data []byte) (*ProductResults, error) {
	var wrapped struct {
		Data []Product `json:"data"`
		Meta struct {
			Pagination struct {
				Total int `json:"total"`
			} `json:"pagination"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		var shape map[string]json.RawMessage
		if err := json.Unmarshal(data, &shape); err == nil {
			if _, hasData := shape["data"]; hasData {
				total := wrapped.Meta.Pagination.Total
				if total == 0 {
					total = len(wrapped.Data)
				}
				return &ProductResults{Products: wrapped.Data, Total: total}, nil
			}
		}
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("unmarshal product search payload: %w", err)
	}
	return &ProductResults{Products: products, Total: len(products)}, nil
}
