package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/oakmart/storefront/internal/catalog"
	"github.com/oakmart/storefront/internal/common"
	"github.com/oakmart/storefront/internal/obs"
	"github.com/oakmart/storefront/internal/pricing"
)

type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		Service:  svc,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type checkoutItemPayload struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

type checkoutPayload struct {
	Items          []checkoutItemPayload `json:"items" validate:"required,min=1,dive"`
	ShippingMethod string                `json:"shippingMethod" validate:"required"`
}

// Checkout prices the submitted items for the authenticated user and records
// the resulting order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var payload checkoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid checkout payload", validationDetails(err))
		return
	}
	method, err := pricing.ParseShippingMethod(payload.ShippingMethod)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	refs := make([]catalog.ItemRef, 0, len(payload.Items))
	for _, it := range payload.Items {
		refs = append(refs, catalog.ItemRef{SKU: it.SKU, Qty: it.Quantity})
	}

	o, err := h.Service.Checkout(r.Context(), userID, CheckoutInput{
		Items:          refs,
		ShippingMethod: method,
	})
	if err != nil {
		recordCheckout("error")
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_SKU", err.Error(), nil)
		case errors.Is(err, ErrEmptyCheckout):
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		default:
			common.WriteAppError(w, err)
		}
		return
	}

	recordCheckout("ok")
	if obs.FreeShippingGrantedTotal != nil && o.FreeShipping {
		obs.FreeShippingGrantedTotal.Inc()
	}
	common.Data(w, http.StatusCreated, o)
}

// List returns the authenticated user's order history.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	page, perPage := common.ParsePagination(r, 20, 100)
	orders, total, err := h.Service.List(r.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	common.Data(w, http.StatusOK, orders)
}

// Get returns one order with its items, scoped to the owner.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	o, err := h.Service.Get(r.Context(), userID, chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.WriteAppError(w, err)
		return
	}
	common.Data(w, http.StatusOK, o)
}

func recordCheckout(result string) {
	if obs.CheckoutsTotal != nil {
		obs.CheckoutsTotal.WithLabelValues(result).Inc()
	}
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, map[string]string{
			"field": fe.Field(),
			"rule":  fe.Tag(),
		})
	}
	return details
}
