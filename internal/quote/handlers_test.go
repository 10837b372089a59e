package quote_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/internal/pricing"
	"github.com/oakmart/storefront/internal/quote"
)

type quoteResponse struct {
	Data pricing.PricingResult `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details []map[string]string `json:"details"`
	} `json:"error"`
}

func postQuote(t *testing.T, handler *quote.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Quote(rec, req)
	return rec
}

func TestQuoteHandlerComputesBreakdown(t *testing.T) {
	handler := quote.NewHandler()
	rec := postQuote(t, handler, `{
		"items": [{"sku":"SKU-1","name":"Widget","unitPrice":10000,"quantity":3,"weightKg":0.5}],
		"customer": {"tenureYears": 5},
		"method": "standard"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(30000), resp.Data.OriginalTotal)
	require.Equal(t, int64(4500), resp.Data.BulkDiscountTotal)
	require.Equal(t, int64(1275), resp.Data.LoyaltyDiscount)
	require.Equal(t, int64(24225), resp.Data.FinalTotal)
	require.True(t, resp.Data.Shipment.IsFreeShipping)
	require.Equal(t, resp.Data.FinalTotal, resp.Data.GrandTotal)
	require.Len(t, resp.Data.LineItems, 1)

	// Money fields serialise as plain integers, never floats.
	require.Contains(t, rec.Body.String(), `"finalTotal":24225`)
}

func TestQuoteHandlerRejectsMalformedBody(t *testing.T) {
	handler := quote.NewHandler()

	rec := postQuote(t, handler, `{"items": "not-an-array"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postQuote(t, handler, `{"customer":{"tenureYears":1},"method":"standard"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	require.Equal(t, "items", resp.Error.Details[0]["field"])
}

func TestQuoteHandlerRejectsInvalidFields(t *testing.T) {
	handler := quote.NewHandler()

	cases := map[string]string{
		"zero quantity":   `{"items":[{"sku":"A","unitPrice":100,"quantity":0}],"method":"standard"}`,
		"negative price":  `{"items":[{"sku":"A","unitPrice":-1,"quantity":1}],"method":"standard"}`,
		"missing sku":     `{"items":[{"unitPrice":100,"quantity":1}],"method":"standard"}`,
		"negative weight": `{"items":[{"sku":"A","unitPrice":100,"quantity":1,"weightKg":-0.5}],"method":"standard"}`,
		"negative tenure": `{"items":[{"sku":"A","unitPrice":100,"quantity":1}],"customer":{"tenureYears":-1},"method":"standard"}`,
		"unknown method":  `{"items":[{"sku":"A","unitPrice":100,"quantity":1}],"method":"overnight"}`,
		"missing method":  `{"items":[{"sku":"A","unitPrice":100,"quantity":1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postQuote(t, handler, body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			require.NotEmpty(t, resp.Error.Details)
		})
	}
}

func TestQuoteHandlerAllowsEmptyItems(t *testing.T) {
	handler := quote.NewHandler()
	rec := postQuote(t, handler, `{"items":[],"customer":{"tenureYears":0},"method":"standard"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(0), resp.Data.FinalTotal)
	require.Equal(t, int64(700), resp.Data.Shipment.TotalShipping)
	require.Equal(t, int64(700), resp.Data.GrandTotal)
}
