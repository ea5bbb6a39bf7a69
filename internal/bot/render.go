package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"orderbot/internal/order"
)

// renderEffects performs the machine's outbound effects in order. The session
// transition is already committed when this runs: a failed send or a failed
// operator delivery never rolls it back.
func (b *Bot) renderEffects(ctx context.Context, chatID int64, lang string, effects []order.Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case order.SendText:
			b.renderText(chatID, lang, e)
		case order.PromptChoice:
			msg := tgbotapi.NewMessage(chatID, localizef(e.Msg, lang, e.Args...))
			msg.ReplyMarkup = b.choiceKeyboard(lang, e)
			b.send(msg)
		case order.NotifyOperator:
			b.deliverOrder(ctx, e.Order)
		default:
			b.logger.Warn("Unknown effect", zap.Any("effect", effect))
		}
	}
}

func (b *Bot) renderText(chatID int64, lang string, e order.SendText) {
	switch e.Msg {
	case order.MsgPaymentInstructions:
		// The payment address is deployment config, not conversation state.
		b.send(tgbotapi.NewMessage(chatID, localizef(e.Msg, lang, b.cfg.PaymentAddress)))
	case order.MsgOrderConfirmed:
		text := localize(e.Msg, lang)
		if b.cfg.SupportContact != "" {
			text += " " + localizef(order.MsgSupportLine, lang, b.cfg.SupportContact)
		}
		b.send(tgbotapi.NewMessage(chatID, text))
	default:
		b.send(tgbotapi.NewMessage(chatID, localizef(e.Msg, lang, e.Args...)))
	}
}

// choiceKeyboard builds one inline button per choice, one per row. The main
// menu additionally carries the support entry when a contact is configured.
func (b *Bot) choiceKeyboard(lang string, prompt order.PromptChoice) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(prompt.Choices)+1)
	for _, choice := range prompt.Choices {
		data, ok := callbackData(choice.Event)
		if !ok {
			continue
		}
		label := choice.Label
		if choice.LabelMsg != "" {
			label = localize(choice.LabelMsg, lang)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data),
		))
	}

	if prompt.Msg == order.MsgMainMenu && b.cfg.SupportContact != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(localize(order.MsgBtnSupport, lang), cbSupport),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
