package pricing

import (
	"fmt"
	"math"
	"strings"
)

// ShippingMethod is a closed enumeration of supported delivery options.
type ShippingMethod string

const (
	MethodStandard  ShippingMethod = "standard"
	MethodExpedited ShippingMethod = "expedited"
	MethodExpress   ShippingMethod = "express"
)

// Shipping fee schedule, in cents unless noted.
const (
	standardBaseFee       = Money(700)
	weightRatePerKg       = 200.0
	expeditedSurchargeBps = 1500
	expressFlatFee        = Money(2500)
	freeShippingThreshold = Money(10000)
)

// ParseShippingMethod resolves a wire value into a ShippingMethod. Unknown
// values are a validation failure for the caller, never an engine concern.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	switch ShippingMethod(strings.ToLower(strings.TrimSpace(value))) {
	case MethodStandard:
		return MethodStandard, nil
	case MethodExpedited:
		return MethodExpedited, nil
	case MethodExpress:
		return MethodExpress, nil
	default:
		return "", fmt.Errorf("unknown shipping method %q", value)
	}
}

// ShipmentInfo is the shipment stage output. Component fees are reported as
// computed even when the free-shipping rule zeroes TotalShipping.
type ShipmentInfo struct {
	Method             ShippingMethod `json:"method"`
	BaseFee            Money          `json:"baseFee"`
	WeightSurcharge    Money          `json:"weightSurcharge"`
	ExpeditedSurcharge Money          `json:"expeditedSurcharge"`
	TotalShipping      Money          `json:"totalShipping"`
	IsFreeShipping     bool           `json:"isFreeShipping"`
}

// computeShipment evaluates the four-way shipping formula. Each surcharge is
// rounded to integer cents before summation so the total is a sum of
// already-rounded components.
func computeShipment(method ShippingMethod, totalWeightKg float64, originalTotal, finalTotal Money) ShipmentInfo {
	info := ShipmentInfo{Method: method}
	switch method {
	case MethodExpress:
		// Flat fee regardless of weight or totals, never free.
		info.ExpeditedSurcharge = expressFlatFee
		info.TotalShipping = expressFlatFee
	case MethodExpedited:
		info.BaseFee = standardBaseFee
		info.WeightSurcharge = roundCents(totalWeightKg * weightRatePerKg)
		info.ExpeditedSurcharge = percentOf(originalTotal, expeditedSurchargeBps)
		info.TotalShipping = info.BaseFee + info.WeightSurcharge + info.ExpeditedSurcharge
	default:
		info.Method = MethodStandard
		info.BaseFee = standardBaseFee
		info.WeightSurcharge = roundCents(totalWeightKg * weightRatePerKg)
		// Strictly greater than: at exactly the threshold shipping is charged.
		if finalTotal > freeShippingThreshold {
			info.IsFreeShipping = true
			info.TotalShipping = 0
		} else {
			info.TotalShipping = info.BaseFee + info.WeightSurcharge
		}
	}
	return info
}

// roundCents rounds a non-negative real cent value half-up to an integer.
func roundCents(v float64) Money {
	return Money(math.Floor(v + 0.5))
}
