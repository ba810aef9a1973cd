package notify

import (
	"context"
	"fmt"
	"sync"

	logpkg "github.com/benvon/email-reminders/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// telegramAPI is the subset of *tgbotapi.BotAPI used here
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramNotifier delivers notifications as chat messages with action buttons.
// Clearing a notification deletes its message. The key to message mapping lives
// in memory, so messages sent before a restart are left in the chat.
type TelegramNotifier struct {
	api    telegramAPI
	chatID int64
	logger *zap.Logger

	mu   sync.Mutex
	sent map[string]int
}

// NewTelegramNotifier connects to the bot API with token
func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("telegram_authorized", zap.String("bot", api.Self.UserName))
	return newTelegramNotifier(api, chatID, logger), nil
}

func newTelegramNotifier(api telegramAPI, chatID int64, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: logger,
		sent:   make(map[string]int),
	}
}

func actionKeyboard(key string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📧 Open", EncodeAction(Action{Kind: ActionOpen, ReminderID: key})),
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", EncodeAction(Action{Kind: ActionComplete, ReminderID: key})),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ 15 min", EncodeAction(Action{Kind: ActionSnooze, ReminderID: key, Minutes: 15})),
			tgbotapi.NewInlineKeyboardButtonData("⏰ 1 hour", EncodeAction(Action{Kind: ActionSnooze, ReminderID: key, Minutes: 60})),
			tgbotapi.NewInlineKeyboardButtonData("🌅 Tomorrow", EncodeAction(Action{Kind: ActionSnooze, ReminderID: key, Minutes: 1440})),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖ Dismiss", EncodeAction(Action{Kind: ActionDismiss, ReminderID: key})),
		),
	)
}

// Create sends the notification, replacing an earlier message under the same key
func (n *TelegramNotifier) Create(ctx context.Context, key string, notification Notification) error {
	if err := n.Clear(ctx, key); err != nil {
		n.logger.Debug("telegram_replace_clear_failed", zap.String("error", logpkg.SanitizeError(err)))
	}

	msg := tgbotapi.NewMessage(n.chatID, "🔔 "+notification.Title+"\n\n"+notification.Message)
	msg.ReplyMarkup = actionKeyboard(key)

	sent, err := n.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.mu.Lock()
	n.sent[key] = sent.MessageID
	n.mu.Unlock()
	return nil
}

// Clear deletes the message sent under key, if any
func (n *TelegramNotifier) Clear(_ context.Context, key string) error {
	n.mu.Lock()
	messageID, ok := n.sent[key]
	delete(n.sent, key)
	n.mu.Unlock()
	if !ok {
		return nil
	}

	if _, err := n.api.Request(tgbotapi.NewDeleteMessage(n.chatID, messageID)); err != nil {
		return fmt.Errorf("delete telegram message: %w", err)
	}
	return nil
}

// Listen long-polls for button presses and passes them to handle until ctx is done
func (n *TelegramNotifier) Listen(ctx context.Context, handle ActionHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := n.api.GetUpdatesChan(u)
	defer n.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.CallbackQuery == nil {
				continue
			}
			n.handleCallback(ctx, update.CallbackQuery, handle)
		}
	}
}

func (n *TelegramNotifier) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, handle ActionHandler) {
	if callback.Message != nil && callback.Message.Chat != nil && callback.Message.Chat.ID != n.chatID {
		n.logger.Warn("telegram_callback_foreign_chat", zap.Int64("chat_id", callback.Message.Chat.ID))
		return
	}

	answer := ""
	action, err := DecodeAction(callback.Data)
	if err != nil {
		n.logger.Warn("telegram_callback_invalid", zap.String("error", logpkg.SanitizeError(err)))
		answer = "Unknown action"
	} else if err := handle(ctx, action); err != nil {
		n.logger.Warn("telegram_action_failed",
			zap.String("reminder_id", logpkg.SanitizeID(action.ReminderID)),
			zap.String("action", string(action.Kind)),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		answer = "Reminder not updated"
	}

	if _, err := n.api.Request(tgbotapi.NewCallback(callback.ID, answer)); err != nil {
		n.logger.Debug("telegram_callback_ack_failed", zap.String("error", logpkg.SanitizeError(err)))
	}
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
)
