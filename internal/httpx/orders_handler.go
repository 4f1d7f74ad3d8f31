package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/codeshop/codeshop/internal/billing"
	"github.com/codeshop/codeshop/internal/codes"
	"github.com/codeshop/codeshop/internal/redisx"
)

type OrdersHandler struct {
	Service *codes.Service
	Store   codes.Store
	Redis   *redis.Client
}

type PurchaseReq struct {
	Email        string           `json:"email"`
	PaymentToken string           `json:"payment_token"`
	ShoppingCart []codes.CartLine `json:"shopping_cart"`
}

type PurchaseResp struct {
	OrderID            string `json:"order_id"`
	ConfirmationNumber string `json:"confirmation_number"`
	Email              string `json:"email"`
	Amount             int64  `json:"amount"`
	CodeQuantity       int    `json:"code_quantity"`
}

type AddCodesReq struct {
	Codes []codes.NewCode `json:"codes"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/products/{id}/orders", h.purchase)
	r.Get("/products/{id}/orders", h.listOrders)
	r.Get("/products/{id}/codes_remaining", h.codesRemaining)
	r.Post("/products/{id}/codes", h.addCodes)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errJSON(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (h *OrdersHandler) purchase(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	var req PurchaseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PaymentToken == "" {
		errJSON(w, http.StatusBadRequest, "payment_token is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.Service.Purchase(ctx, productID, req.ShoppingCart, req.Email, req.PaymentToken)
	switch {
	case err == nil:
	case errors.Is(err, codes.ErrInsufficientInventory),
		errors.Is(err, billing.ErrPaymentFailed):
		// Both expected business outcomes reject the same way the catalog
		// front end expects.
		errJSON(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, codes.ErrEmptyCart),
		errors.Is(err, codes.ErrInvalidLine),
		errors.Is(err, codes.ErrMissingEmail):
		errJSON(w, http.StatusBadRequest, err.Error())
		return
	default:
		errJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.invalidateRemaining(ctx, productID)

	writeJSON(w, http.StatusCreated, PurchaseResp{
		OrderID:            order.ID,
		ConfirmationNumber: order.ConfirmationNumber,
		Email:              order.Email,
		Amount:             order.Amount,
		CodeQuantity:       order.CodeQuantity,
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	email := r.URL.Query().Get("email")
	if email == "" {
		errJSON(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Store.OrdersFor(ctx, productID, email)
	if err != nil {
		errJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]PurchaseResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, PurchaseResp{
			OrderID:            o.ID,
			ConfirmationNumber: o.ConfirmationNumber,
			Email:              o.Email,
			Amount:             o.Amount,
			CodeQuantity:       o.CodeQuantity,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) codesRemaining(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Cache first; a dead Redis just means the store answers.
	key := fmt.Sprintf(redisx.KeyCodesRemaining, productID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				writeJSON(w, http.StatusOK, map[string]int64{"codes_remaining": n})
				return
			}
		}
	}

	n, err := h.Store.CodesRemaining(ctx, productID)
	if err != nil {
		errJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, strconv.FormatInt(n, 10), redisx.TTLCodesRemaining).Err()
	}
	writeJSON(w, http.StatusOK, map[string]int64{"codes_remaining": n})
}

func (h *OrdersHandler) addCodes(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	var req AddCodesReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Codes) == 0 {
		errJSON(w, http.StatusBadRequest, "codes is required")
		return
	}
	for _, c := range req.Codes {
		if c.Period <= 0 || c.SerialNumber == "" || c.Price < 0 {
			errJSON(w, http.StatusBadRequest, "each code needs period > 0, serial_number and price >= 0")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.AddCodes(ctx, productID, req.Codes); err != nil {
		errJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.invalidateRemaining(ctx, productID)
	writeJSON(w, http.StatusCreated, map[string]int{"added": len(req.Codes)})
}

func (h *OrdersHandler) invalidateRemaining(ctx context.Context, productID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyCodesRemaining, productID)).Err()
}
