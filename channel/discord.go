package channel

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/mohitkumar/funnel/logger"
	"go.uber.org/zap"
)

var _ Gateway = new(DiscordGateway)

// DiscordGateway sends messages to a Discord channel. The recipient is the
// channel id.
type DiscordGateway struct {
	session *discordgo.Session
	inbound InboundHandler
}

func NewDiscordGateway(token string, inbound InboundHandler) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	g := &DiscordGateway{session: session, inbound: inbound}
	session.AddHandler(g.handleMessage)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	return g, nil
}

func (g *DiscordGateway) SendMessage(ctx context.Context, msg Message) (bool, error) {
	_, err := g.session.ChannelMessageSend(msg.To, msg.Message)
	if err != nil {
		logger.Error("error sending discord message", zap.String("to", msg.To), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (g *DiscordGateway) Start() error {
	logger.Info("discord gateway starting")
	return g.session.Open()
}

func (g *DiscordGateway) Stop() error {
	return g.session.Close()
}

func (g *DiscordGateway) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	if g.inbound == nil || len(m.Content) == 0 {
		return
	}
	g.inbound(context.Background(), m.ChannelID, m.Content)
}
