package product

import (
	"github.com/boticalabs/botica-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Query                string `json:"q,omitempty"`
	Tag                  string `json:"tag,omitempty"`
	RequiresPrescription *bool  `json:"requires_prescription,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate and filter the catalog.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}
