package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"orderbot/internal/order"
)

// isOperator is the whole authorization model: one configured identity.
// Everyone else gets silence, not an error.
func (b *Bot) isOperator(chatID int64) bool {
	return chatID == b.cfg.OperatorID
}

func (b *Bot) handleOperatorQuery(ctx context.Context, chatID int64, q order.OperatorQuery) {
	if !b.isOperator(chatID) {
		return
	}

	switch q.Query {
	case order.QueryUserCount:
		n, err := b.storage.CountUsers(ctx)
		if err != nil {
			b.logger.Error("Failed to count users", zap.Error(err))
			b.sendError(chatID, "en")
			return
		}
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Total users: %d", n)))
	case order.QueryOrderCount:
		n, err := b.storage.CountOrders(ctx)
		if err != nil {
			b.logger.Error("Failed to count orders", zap.Error(err))
			b.sendError(chatID, "en")
			return
		}
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Total orders: %d", n)))
	}
}

func (b *Bot) handleExportOrders(ctx context.Context, chatID int64) {
	if !b.isOperator(chatID) {
		return
	}

	filename := fmt.Sprintf("orders_report_%s", time.Now().Format("20060102"))
	filepath, err := b.storage.ExportOrdersToExcel(ctx, filename)
	if err != nil {
		b.logger.Error("Failed to export orders", zap.Error(err))
		b.sendError(chatID, "en")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filepath))
	doc.Caption = "📊 All orders export"
	if _, err := b.bot.Send(doc); err != nil {
		b.logger.Error("Failed to send Excel file", zap.Error(err))
		b.sendError(chatID, "en")
	}
}
