package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"orderbot/internal/order"
	"orderbot/internal/storage"
)

// deliverOrder persists a completed order and notifies the operator. Both
// steps are best-effort: the user's session already moved on.
func (b *Bot) deliverOrder(ctx context.Context, o order.CompletedOrder) {
	rec := storage.OrderRecord{
		UserID:          o.UserID,
		RegionID:        o.RegionID,
		Language:        o.Language,
		Currency:        o.Currency,
		ProductID:       o.ProductID,
		ProductName:     o.ProductName,
		Quantity:        o.Quantity,
		ChosenPrice:     o.ChosenPrice,
		UnitPrice:       o.UnitPrice,
		TotalAmount:     o.TotalAmount,
		DepositAmount:   o.DepositAmount,
		BalanceAmount:   o.BalanceAmount,
		PaymentProofRef: o.PaymentProofRef,
		ShippingAddress: o.ShippingAddress,
		Phase:           string(o.Phase),
		CreatedAt:       time.Now(),
	}

	orderID, err := b.storage.SaveOrder(ctx, rec)
	if err != nil {
		b.logger.Error("Failed to save completed order",
			zap.String("user_id", o.UserID),
			zap.Error(err))
	}
	rec.ID = orderID

	msg := tgbotapi.NewMessage(b.cfg.OperatorID, formatOrderNotification(rec))
	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Error("Failed to send operator notification",
			zap.Int64("order_id", orderID),
			zap.Error(err))
	}
}

func formatOrderNotification(rec storage.OrderRecord) string {
	return fmt.Sprintf(
		"📦 New Order Received!\n\n"+
			"Order ID: %d\n"+
			"User ID: %s\n"+
			"Product: %s\n"+
			"Quantity: %d\n"+
			"Price per item: %.2f %s\n"+
			"Total amount: %.2f %s\n"+
			"Deposit paid: %.2f %s\n"+
			"Balance on delivery: %.2f %s\n"+
			"Payment proof: %s\n"+
			"Shipping address: %s\n\n"+
			"User's language: %s",
		rec.ID,
		rec.UserID,
		rec.ProductName,
		rec.Quantity,
		rec.UnitPrice, rec.Currency,
		rec.TotalAmount, rec.Currency,
		rec.DepositAmount, rec.Currency,
		rec.BalanceAmount, rec.Currency,
		proofLabel(rec.PaymentProofRef),
		rec.ShippingAddress,
		rec.Language,
	)
}

func proofLabel(ref string) string {
	if ref == "" {
		return "not provided"
	}
	return ref
}
