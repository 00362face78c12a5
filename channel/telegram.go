package channel

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/mohitkumar/funnel/logger"
	"go.uber.org/zap"
)

var _ Gateway = new(TelegramGateway)

// TelegramGateway sends messages through a Telegram bot. The recipient is the
// chat id. Text messages written to the bot are handed to the inbound handler.
type TelegramGateway struct {
	bot     *bot.Bot
	inbound InboundHandler
	mu      sync.Mutex
	cancel  context.CancelFunc
}

func NewTelegramGateway(token string, inbound InboundHandler) (*TelegramGateway, error) {
	g := &TelegramGateway{inbound: inbound}
	opts := []bot.Option{
		bot.WithDefaultHandler(g.handleUpdate),
		bot.WithErrorsHandler(func(err error) {
			logger.Error("telegram error", zap.Error(err))
		}),
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	g.bot = b
	return g, nil
}

func (g *TelegramGateway) SendMessage(ctx context.Context, msg Message) (bool, error) {
	var chatID any = msg.To
	if id, err := strconv.ParseInt(msg.To, 10, 64); err == nil {
		chatID = id
	}
	_, err := g.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   msg.Message,
	})
	if err != nil {
		logger.Error("error sending telegram message", zap.String("to", msg.To), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Start polls for updates until Stop is called.
func (g *TelegramGateway) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
	go g.bot.Start(ctx)
	logger.Info("telegram gateway started")
	return nil
}

func (g *TelegramGateway) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	return nil
}

func (g *TelegramGateway) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || len(update.Message.Text) == 0 || g.inbound == nil {
		return
	}
	recipient := strconv.FormatInt(update.Message.Chat.ID, 10)
	g.inbound(ctx, recipient, update.Message.Text)
}
