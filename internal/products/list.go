package product

import (
	"github.com/avendanolabs/storefront-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Category      *string `json:"category,omitempty"`
	Brand         *string `json:"brand,omitempty"`
	PriceMinCents *int64  `json:"price_min_cents,omitempty"`
	PriceMaxCents *int64  `json:"price_max_cents,omitempty"`
	RatingMin     *float64 `json:"rating_min,omitempty"`
	InStock       *bool   `json:"in_stock,omitempty"`
	Query         string  `json:"q,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter the catalog.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}

// ProductListResult carries one page of catalog rows plus the next cursor.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}
