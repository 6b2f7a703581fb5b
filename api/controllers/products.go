package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/avendanolabs/storefront-backend/api/responses"
	"github.com/avendanolabs/storefront-backend/api/validators"
	productsvc "github.com/avendanolabs/storefront-backend/internal/products"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
	"github.com/avendanolabs/storefront-backend/pkg/logger"
)

type createProductRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Brand       string `json:"brand" validate:"required"`
	Category    string `json:"category" validate:"required"`
	PriceCents  int64  `json:"price_cents" validate:"min=0"`
	Stock       int    `json:"stock" validate:"min=0"`
}

type updateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Brand       *string `json:"brand,omitempty"`
	Category    *string `json:"category,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	Stock       *int    `json:"stock,omitempty" validate:"omitempty,min=0"`
}

// ListProducts serves the public catalog browse endpoint.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseProductFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), productsvc.ListProductsInput{
			Filters:    filters,
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), actorID, productsvc.CreateProductInput{
			Name:        payload.Name,
			Description: payload.Description,
			Brand:       payload.Brand,
			Category:    payload.Category,
			PriceCents:  payload.PriceCents,
			Stock:       payload.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, productsvc.UpdateProductInput{
			Name:        payload.Name,
			Description: payload.Description,
			Brand:       payload.Brand,
			Category:    payload.Category,
			PriceCents:  payload.PriceCents,
			Stock:       payload.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func parseProductFilters(r *http.Request) (productsvc.ProductListFilters, error) {
	q := r.URL.Query()
	filters := productsvc.ProductListFilters{
		Query: strings.TrimSpace(q.Get("q")),
	}

	if v := strings.TrimSpace(q.Get("category")); v != "" {
		filters.Category = &v
	}
	if v := strings.TrimSpace(q.Get("brand")); v != "" {
		filters.Brand = &v
	}
	if v := strings.TrimSpace(q.Get("price_min")); v != "" {
		cents, err := strconv.ParseInt(v, 10, 64)
		if err != nil || cents < 0 {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "price_min must be a non-negative integer")
		}
		filters.PriceMinCents = &cents
	}
	if v := strings.TrimSpace(q.Get("price_max")); v != "" {
		cents, err := strconv.ParseInt(v, 10, 64)
		if err != nil || cents < 0 {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "price_max must be a non-negative integer")
		}
		filters.PriceMaxCents = &cents
	}
	if v := strings.TrimSpace(q.Get("rating_min")); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil || rating < 0 || rating > 5 {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "rating_min must be between 0 and 5")
		}
		filters.RatingMin = &rating
	}
	if v := strings.TrimSpace(q.Get("in_stock")); v != "" {
		inStock, err := strconv.ParseBool(v)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "in_stock must be a boolean")
		}
		filters.InStock = &inStock
	}
	return filters, nil
}
