package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/oakmart/storefront/internal/common"
	"github.com/oakmart/storefront/internal/obs"
	"github.com/oakmart/storefront/internal/order"
)

// TypeOrderReceipt identifies the order receipt email task.
const TypeOrderReceipt = "order:receipt"

// OrderReceiptPayload is the serialized task body for receipt delivery.
type OrderReceiptPayload struct {
	OrderID string `json:"orderId"`
	Email   string `json:"email"`
}

// NewOrderReceiptTask builds an asynq task carrying the receipt payload.
func NewOrderReceiptTask(orderID, email string) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderReceiptPayload{OrderID: orderID, Email: email})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderReceipt, payload, asynq.MaxRetry(5)), nil
}

// Enqueuer submits background tasks from request handlers.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueOrderReceipt schedules receipt delivery for a committed order.
func (e Enqueuer) EnqueueOrderReceipt(ctx context.Context, orderID, email string) error {
	task, err := NewOrderReceiptTask(orderID, email)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeOrderReceipt, err)
	}
	return nil
}

// ReceiptProcessor renders and sends order receipt emails.
type ReceiptProcessor struct {
	Orders orderLoader
	Mail   common.EmailSender
	From   string
	Log    zerolog.Logger
}

type orderLoader interface {
	GetByID(ctx context.Context, orderID string) (order.Order, error)
}

// ProcessTask implements asynq.Handler for TypeOrderReceipt.
func (p ReceiptProcessor) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload OrderReceiptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A malformed payload never becomes valid; do not retry.
		recordReceipt("malformed")
		return fmt.Errorf("unmarshal receipt payload: %v: %w", err, asynq.SkipRetry)
	}

	o, err := p.Orders.GetByID(ctx, payload.OrderID)
	if err != nil {
		recordReceipt("load_failed")
		return fmt.Errorf("load order %s: %w", payload.OrderID, err)
	}

	body := receiptBody(o)
	if p.From != "" {
		body += fmt.Sprintf("\nQuestions? Reply to %s\n", p.From)
	}
	subject := fmt.Sprintf("Your order %s is confirmed", o.ID)
	if err := p.Mail.Send(payload.Email, subject, body); err != nil {
		recordReceipt("send_failed")
		return fmt.Errorf("send receipt for order %s: %w", o.ID, err)
	}

	recordReceipt("sent")
	p.Log.Info().Str("order_id", o.ID).Msg("receipt sent")
	return nil
}

func receiptBody(o order.Order) string {
	body := fmt.Sprintf("Thanks for your order!\n\nOrder %s\n\n", o.ID)
	for _, it := range o.Items {
		body += fmt.Sprintf("  %dx %s  %s\n", it.Quantity, it.Name, formatMoney(it.LineTotal, o.Currency))
	}
	body += fmt.Sprintf("\nDiscounts: -%s\n", formatMoney(o.TotalDiscount, o.Currency))
	if o.FreeShipping {
		body += "Shipping: free\n"
	} else {
		body += fmt.Sprintf("Shipping: %s\n", formatMoney(o.ShippingTotal, o.Currency))
	}
	body += fmt.Sprintf("Total: %s\n", formatMoney(o.GrandTotal, o.Currency))
	return body
}

func formatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}

func recordReceipt(result string) {
	if obs.ReceiptJobsTotal != nil {
		obs.ReceiptJobsTotal.WithLabelValues(result).Inc()
	}
}
