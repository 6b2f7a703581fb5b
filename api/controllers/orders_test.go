package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avendanolabs/storefront-backend/api/middleware"
	ordersvc "github.com/avendanolabs/storefront-backend/internal/orders"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
	"github.com/avendanolabs/storefront-backend/pkg/types"
)

type stubOrderService struct {
	createFn func(ctx context.Context, userID uuid.UUID, input ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error)
	getFn    func(ctx context.Context, orderID, actorID uuid.UUID, role enums.Role) (*ordersvc.OrderDTO, error)
}

func (s *stubOrderService) Create(ctx context.Context, userID uuid.UUID, input ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error) {
	return s.createFn(ctx, userID, input)
}

func (s *stubOrderService) MarkPaid(context.Context, uuid.UUID, ordersvc.PaymentResult) (*ordersvc.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubOrderService) MarkDelivered(context.Context, uuid.UUID) (*ordersvc.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubOrderService) Delete(context.Context, uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubOrderService) GetByID(ctx context.Context, orderID, actorID uuid.UUID, role enums.Role) (*ordersvc.OrderDTO, error) {
	return s.getFn(ctx, orderID, actorID, role)
}

func (s *stubOrderService) ListByUser(context.Context, uuid.UUID, ordersvc.ListOrdersInput) (*ordersvc.OrderListResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubOrderService) ListAll(context.Context, ordersvc.ListOrdersInput) (*ordersvc.AdminOrderListResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func authedRequest(t *testing.T, method, target string, body any, userID uuid.UUID, role enums.Role) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func TestCreateOrderReturnsCreated(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrderService{
		createFn: func(_ context.Context, gotUser uuid.UUID, input ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error) {
			if gotUser != userID {
				t.Fatalf("user id = %s, want %s", gotUser, userID)
			}
			if len(input.Items) != 1 || input.Items[0].Qty != 2 {
				t.Fatalf("unexpected items: %+v", input.Items)
			}
			return &ordersvc.OrderDTO{ID: orderID, UserID: gotUser, TotalCents: 2000}, nil
		},
	}

	payload := map[string]any{
		"items": []map[string]any{
			{"product_id": uuid.NewString(), "qty": 2},
		},
	}
	req := authedRequest(t, http.MethodPost, "/api/v1/orders", payload, userID, enums.RoleUser)
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["id"] != orderID.String() {
		t.Fatalf("unexpected order id %v", data["id"])
	}
}

func TestCreateOrderRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	svc := &stubOrderService{
		createFn: func(context.Context, uuid.UUID, ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	payload := map[string]any{
		"items":    []map[string]any{{"product_id": uuid.NewString(), "qty": 1}},
		"surprise": true,
	}
	req := authedRequest(t, http.MethodPost, "/api/v1/orders", payload, uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderRequiresIdentity(t *testing.T) {
	t.Parallel()

	svc := &stubOrderService{
		createFn: func(context.Context, uuid.UUID, ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	CreateOrder(svc, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetOrderMapsServiceErrors(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	svc := &stubOrderService{
		getFn: func(_ context.Context, gotOrder, _ uuid.UUID, _ enums.Role) (*ordersvc.OrderDTO, error) {
			if gotOrder != orderID {
				t.Fatalf("order id = %s, want %s", gotOrder, orderID)
			}
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		},
	}

	router := chi.NewRouter()
	router.Get("/orders/{orderId}", GetOrder(svc, nil))

	req := authedRequest(t, http.MethodGet, "/orders/"+orderID.String(), nil, uuid.New(), enums.RoleUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}
