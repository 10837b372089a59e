package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Discount and cap rates expressed in basis points of the affected amount.
const (
	bulkQtyThreshold = 3
	bulkDiscountBps  = 1500
	loyaltyBps       = 500
	discountCapBps   = 3000

	loyaltyTenureYears = 2
)

// LineItem describes one ordered product. Inputs are assumed validated
// upstream: non-empty SKU, non-negative price and weight, positive quantity.
type LineItem struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	UnitPrice Money   `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	WeightKg  float64 `json:"weightKg"`
}

// Customer carries the profile fields that participate in pricing.
type Customer struct {
	TenureYears int `json:"tenureYears"`
}

// LineItemResult is the per-line breakdown produced by the line discount stage.
type LineItemResult struct {
	SKU                    string `json:"sku"`
	Name                   string `json:"name"`
	UnitPrice              Money  `json:"unitPrice"`
	Quantity               int    `json:"quantity"`
	LineTotal              Money  `json:"lineTotal"`
	BulkDiscount           Money  `json:"bulkDiscount"`
	LineTotalAfterDiscount Money  `json:"lineTotalAfterDiscount"`
}

// PricingResult is the engine's sole output. All money fields are integer
// cents; the value is never mutated after construction.
type PricingResult struct {
	OriginalTotal     Money            `json:"originalTotal"`
	BulkDiscountTotal Money            `json:"bulkDiscountTotal"`
	SubtotalAfterBulk Money            `json:"subtotalAfterBulk"`
	LoyaltyDiscount   Money            `json:"loyaltyDiscount"`
	TotalDiscount     Money            `json:"totalDiscount"`
	IsDiscountCapped  bool             `json:"isDiscountCapped"`
	FinalTotal        Money            `json:"finalTotal"`
	LineItems         []LineItemResult `json:"lineItems"`
	Shipment          ShipmentInfo     `json:"shipment"`
	GrandTotal        Money            `json:"grandTotal"`
}

// Quote computes the full itemised price breakdown for a set of line items, a
// customer profile and a chosen shipping method. It is pure and total over
// validated input: it never fails and allocates only its result.
func Quote(items []LineItem, customer Customer, method ShippingMethod) PricingResult {
	lines, originalTotal, bulkTotal := lineDiscounts(items)
	subtotalAfterBulk := originalTotal - bulkTotal

	loyalty := Money(0)
	if customer.TenureYears > loyaltyTenureYears {
		loyalty = percentOf(subtotalAfterBulk, loyaltyBps)
	}
	totalDiscount, loyalty, capped := capDiscounts(originalTotal, bulkTotal, loyalty)
	finalTotal := originalTotal - totalDiscount

	shipment := computeShipment(method, totalWeightKg(items), originalTotal, finalTotal)

	return PricingResult{
		OriginalTotal:     originalTotal,
		BulkDiscountTotal: bulkTotal,
		SubtotalAfterBulk: subtotalAfterBulk,
		LoyaltyDiscount:   loyalty,
		TotalDiscount:     totalDiscount,
		IsDiscountCapped:  capped,
		FinalTotal:        finalTotal,
		LineItems:         lines,
		Shipment:          shipment,
		GrandTotal:        finalTotal + shipment.TotalShipping,
	}
}

// lineDiscounts applies the per-SKU bulk discount: 15% off a line whose
// quantity reaches the threshold, rounded half-up to the nearest cent.
func lineDiscounts(items []LineItem) (lines []LineItemResult, originalTotal, bulkTotal Money) {
	lines = make([]LineItemResult, 0, len(items))
	for _, it := range items {
		lineTotal := it.UnitPrice * Money(it.Quantity)
		var discount Money
		if it.Quantity >= bulkQtyThreshold {
			discount = percentOf(lineTotal, bulkDiscountBps)
		}
		lines = append(lines, LineItemResult{
			SKU:                    it.SKU,
			Name:                   it.Name,
			UnitPrice:              it.UnitPrice,
			Quantity:               it.Quantity,
			LineTotal:              lineTotal,
			BulkDiscount:           discount,
			LineTotalAfterDiscount: lineTotal - discount,
		})
		originalTotal += lineTotal
		bulkTotal += discount
	}
	return lines, originalTotal, bulkTotal
}

// capDiscounts enforces the safety valve: the combined discount never exceeds
// 30% of the original total. The loyalty discount is truncated first; bulk
// line discounts are never rewritten, which keeps the per-line breakdown
// consistent with the totals. At the current rates bulk alone stays under the
// cap, so truncating loyalty always suffices, but the final clamp holds the
// invariant even if the rates drift apart.
func capDiscounts(originalTotal, bulk, loyalty Money) (total, adjustedLoyalty Money, capped bool) {
	limit := percentOf(originalTotal, discountCapBps)
	total = bulk + loyalty
	if total <= limit {
		return total, loyalty, false
	}
	over := total - limit
	if over > loyalty {
		loyalty = 0
	} else {
		loyalty -= over
	}
	total = bulk + loyalty
	if total > limit {
		total = limit
	}
	return total, loyalty, true
}

func totalWeightKg(items []LineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.WeightKg * float64(it.Quantity)
	}
	return total
}

// percentOf applies a basis-point rate to a non-negative amount, rounding
// half-up to the nearest cent.
func percentOf(amount Money, bps int64) Money {
	return (amount*bps + 5000) / 10000
}
