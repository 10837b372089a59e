package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/oakmart/storefront/internal/common"
	"github.com/oakmart/storefront/internal/obs"
	"github.com/oakmart/storefront/internal/pricing"
)

// Handler exposes the pricing engine over HTTP. All precondition enforcement
// lives here; the engine itself is total over validated input.
type Handler struct {
	Validate *validator.Validate
}

// NewHandler constructs a quote handler with a configured validator.
func NewHandler() *Handler {
	return &Handler{Validate: validator.New(validator.WithRequiredStructEnabled())}
}

type itemPayload struct {
	SKU       string  `json:"sku" validate:"required"`
	Name      string  `json:"name"`
	UnitPrice int64   `json:"unitPrice" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gt=0"`
	WeightKg  float64 `json:"weightKg" validate:"gte=0"`
}

type customerPayload struct {
	TenureYears int `json:"tenureYears" validate:"gte=0"`
}

type quoteRequest struct {
	Items    []itemPayload   `json:"items" validate:"dive"`
	Customer customerPayload `json:"customer"`
	Method   string          `json:"method" validate:"required"`
}

// Quote handles POST /pricing/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.Items == nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid quote request", []map[string]string{{"field": "items", "rule": "required"}})
		return
	}
	if details := h.validate(req); len(details) > 0 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid quote request", details)
		return
	}
	method, err := pricing.ParseShippingMethod(req.Method)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid quote request", []map[string]string{{"field": "method", "rule": "oneof=standard expedited express"}})
		return
	}

	items := make([]pricing.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, pricing.LineItem{
			SKU:       it.SKU,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			WeightKg:  it.WeightKg,
		})
	}
	result := pricing.Quote(items, pricing.Customer{TenureYears: req.Customer.TenureYears}, method)
	recordQuoteMetrics(method, result)
	common.Data(w, http.StatusOK, result)
}

func (h *Handler) validate(req quoteRequest) []map[string]string {
	if h.Validate == nil {
		return nil
	}
	err := h.Validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []map[string]string{{"field": "body", "rule": "invalid"}}
	}
	details := make([]map[string]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, map[string]string{
			"field": fe.Namespace(),
			"rule":  fe.Tag(),
		})
	}
	return details
}

func recordQuoteMetrics(method pricing.ShippingMethod, result pricing.PricingResult) {
	if obs.QuotesComputedTotal != nil {
		obs.QuotesComputedTotal.WithLabelValues(string(method), strconv.FormatBool(result.IsDiscountCapped)).Inc()
	}
	if obs.FreeShippingGrantedTotal != nil && result.Shipment.IsFreeShipping {
		obs.FreeShippingGrantedTotal.Inc()
	}
}
