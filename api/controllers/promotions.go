package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/avendanolabs/storefront-backend/api/responses"
	"github.com/avendanolabs/storefront-backend/api/validators"
	promosvc "github.com/avendanolabs/storefront-backend/internal/promotions"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
	"github.com/avendanolabs/storefront-backend/pkg/logger"
)

type createPromotionRequest struct {
	Name          string      `json:"name" validate:"required"`
	Code          string      `json:"code" validate:"required"`
	DiscountType  string      `json:"discount_type" validate:"required"`
	DiscountValue int64       `json:"discount_value" validate:"min=0"`
	StartsAt      time.Time   `json:"starts_at" validate:"required"`
	EndsAt        time.Time   `json:"ends_at" validate:"required"`
	Active        bool        `json:"active"`
	UsageLimit    *int        `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	ProductIDs    []uuid.UUID `json:"product_ids,omitempty"`
}

type updatePromotionRequest struct {
	Name          *string      `json:"name,omitempty"`
	DiscountType  *string      `json:"discount_type,omitempty"`
	DiscountValue *int64       `json:"discount_value,omitempty" validate:"omitempty,min=0"`
	StartsAt      *time.Time   `json:"starts_at,omitempty"`
	EndsAt        *time.Time   `json:"ends_at,omitempty"`
	Active        *bool        `json:"active,omitempty"`
	UsageLimit    *int         `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	ProductIDs    *[]uuid.UUID `json:"product_ids,omitempty"`
}

func CreatePromotion(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPromotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseDiscountType(payload.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_type"))
			return
		}

		promo, err := svc.CreatePromotion(r.Context(), promosvc.CreatePromotionInput{
			Name:          payload.Name,
			Code:          payload.Code,
			DiscountType:  discountType,
			DiscountValue: payload.DiscountValue,
			StartsAt:      payload.StartsAt,
			EndsAt:        payload.EndsAt,
			Active:        payload.Active,
			UsageLimit:    payload.UsageLimit,
			ProductIDs:    payload.ProductIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, promo)
	}
}

func UpdatePromotion(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promoID, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePromotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := promosvc.UpdatePromotionInput{
			Name:          payload.Name,
			DiscountValue: payload.DiscountValue,
			StartsAt:      payload.StartsAt,
			EndsAt:        payload.EndsAt,
			Active:        payload.Active,
			UsageLimit:    payload.UsageLimit,
			ProductIDs:    payload.ProductIDs,
		}
		if payload.DiscountType != nil {
			discountType, err := enums.ParseDiscountType(*payload.DiscountType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_type"))
				return
			}
			input.DiscountType = &discountType
		}

		promo, err := svc.UpdatePromotion(r.Context(), promoID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promo)
	}
}

func DeletePromotion(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promoID, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePromotion(r.Context(), promoID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func GetPromotion(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promoID, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.GetPromotion(r.Context(), promoID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promo)
	}
}

func ListPromotions(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promos, err := svc.ListPromotions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promos)
	}
}
