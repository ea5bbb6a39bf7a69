package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"orderbot/internal/config"
	"orderbot/internal/order"
	"orderbot/internal/session"
	"orderbot/internal/storage"
)

// Bot is the dispatcher: it routes raw Telegram updates into typed events for
// the state machine and renders the returned effects. All conversation logic
// lives in the machine; the bot owns transport, rendering and the operator
// surface.
type Bot struct {
	bot      *tgbotapi.BotAPI
	machine  *order.Machine
	sessions session.Store
	storage  *storage.PostgresStorage
	cfg      *config.Config
	logger   *zap.Logger
}

func New(
	cfg *config.Config,
	machine *order.Machine,
	sessions session.Store,
	pgStorage *storage.PostgresStorage,
	logger *zap.Logger,
) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	return &Bot{
		bot:      botAPI,
		machine:  machine,
		sessions: sessions,
		storage:  pgStorage,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			return nil

		case update := <-updates:
			// Updates for different users are independent; the session
			// store serializes per-user access.
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.processMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.processCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(chatID, 10)

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, msg)
		return
	}

	if len(msg.Photo) > 0 {
		// The largest photo's file id is the opaque payment proof ref.
		photo := msg.Photo[len(msg.Photo)-1]
		b.dispatch(ctx, chatID, userID, order.SubmitPaymentProof{Ref: photo.FileID})
		return
	}

	sess, err := b.sessions.Get(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to get user session",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "en")
		return
	}

	// Free text is a quantity or an address depending on where the
	// conversation stands; everything else goes through buttons.
	switch sess.Phase {
	case session.PhaseProductChosen:
		b.dispatch(ctx, chatID, userID, order.SubmitQuantity{Raw: msg.Text})
	case session.PhaseAwaitingPayment, session.PhaseAwaitingAddress:
		b.dispatch(ctx, chatID, userID, order.SubmitAddress{Address: msg.Text})
	case session.PhaseNew:
		b.dispatch(ctx, chatID, userID, order.Start{})
	default:
		b.send(tgbotapi.NewMessage(chatID, localize(order.MsgUseMenu, sess.Language)))
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(chatID, 10)

	switch msg.Command() {
	case "start":
		b.dispatch(ctx, chatID, userID, order.Start{})
	case "help":
		lang := b.language(ctx, userID)
		b.send(tgbotapi.NewMessage(chatID, localize(order.MsgHelp, lang)))
	case "users":
		b.handleOperatorQuery(ctx, chatID, order.OperatorQuery{Query: order.QueryUserCount})
	case "orders":
		b.handleOperatorQuery(ctx, chatID, order.OperatorQuery{Query: order.QueryOrderCount})
	case "export":
		b.handleExportOrders(ctx, chatID)
	default:
		lang := b.language(ctx, userID)
		b.send(tgbotapi.NewMessage(chatID, localize(order.MsgUseMenu, lang)))
	}
}

func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	userID := strconv.FormatInt(chatID, 10)
	data := callback.Data

	b.logger.Debug("Processing callback",
		zap.Int64("chat_id", chatID),
		zap.String("data", data))

	if _, err := b.bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}

	if data == cbSupport {
		lang := b.language(ctx, userID)
		b.send(tgbotapi.NewMessage(chatID, localizef(order.MsgSupport, lang, b.cfg.SupportContact)))
		return
	}

	ev, ok := parseCallback(data)
	if !ok {
		b.logger.Warn("Unknown callback data",
			zap.Int64("chat_id", chatID),
			zap.String("data", data))
		return
	}

	b.dispatch(ctx, chatID, userID, ev)

	// A committed region selection is also the user's first registration.
	if _, isRegion := ev.(order.SelectRegion); isRegion {
		b.registerUser(ctx, userID)
	}
}

// dispatch runs one event through the state machine and renders the effects.
// If the event fails to apply, nothing was persisted and the user is told to
// retry; delivery of the update is at-least-once on Telegram's side.
func (b *Bot) dispatch(ctx context.Context, chatID int64, userID string, ev order.Event) {
	effects, err := b.machine.Handle(ctx, userID, ev)
	if err != nil {
		b.logger.Error("Failed to handle event",
			zap.Int64("chat_id", chatID),
			zap.String("event", ev.Kind()),
			zap.Error(err))
		b.sendError(chatID, b.language(ctx, userID))
		return
	}

	b.renderEffects(ctx, chatID, b.language(ctx, userID), effects)
}

func (b *Bot) registerUser(ctx context.Context, userID string) {
	sess, err := b.sessions.Get(ctx, userID)
	if err != nil || sess.RegionID == "" {
		return
	}
	if err := b.storage.UpsertUser(ctx, userID, sess.RegionID, sess.Language, sess.Currency); err != nil {
		b.logger.Error("Failed to record user",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func (b *Bot) language(ctx context.Context, userID string) string {
	sess, err := b.sessions.Get(ctx, userID)
	if err != nil || sess.Language == "" {
		return "en"
	}
	return sess.Language
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err))
	}
}

func (b *Bot) sendError(chatID int64, lang string) {
	b.send(tgbotapi.NewMessage(chatID, "❌ "+localize(order.MsgSomethingWrong, lang)))
}
