// Package channel delivers rendered messages to recipients. The engine only
// sees the Gateway interface; transports live behind it.
package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohitkumar/funnel/model"
)

var ErrNoChannelConfig = errors.New("channel configuration not found")

type Message struct {
	To         string `json:"to"`
	Message    string `json:"message"`
	FlowId     string `json:"flowId,omitempty"`
	From       string `json:"from,omitempty"`
	WebhookUrl string `json:"webhookUrl,omitempty"`
}

type Gateway interface {
	SendMessage(ctx context.Context, msg Message) (bool, error)
}

// InboundHandler receives replies from recipients on channels that deliver
// them to us directly.
type InboundHandler func(ctx context.Context, recipient string, text string)

type ConfigProvider interface {
	GetChannelConfig(ctx context.Context) (*model.ChannelConfig, error)
}

type StaticConfigProvider struct {
	Config model.ChannelConfig
}

func (p StaticConfigProvider) GetChannelConfig(ctx context.Context) (*model.ChannelConfig, error) {
	if p.Config.IsEmpty() {
		return nil, nil
	}
	cfg := p.Config
	return &cfg, nil
}

// FallbackConfigProvider asks each provider in turn and returns the first
// non empty configuration.
type FallbackConfigProvider []ConfigProvider

func (p FallbackConfigProvider) GetChannelConfig(ctx context.Context) (*model.ChannelConfig, error) {
	var errs []error
	for _, provider := range p {
		cfg, err := provider.GetChannelConfig(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !cfg.IsEmpty() {
			return cfg, nil
		}
	}
	if len(errs) != 0 {
		return nil, fmt.Errorf("loading channel configuration: %w", errors.Join(errs...))
	}
	return nil, nil
}

type GatewayType string

const LOG_GATEWAY GatewayType = "log"
const WEBHOOK_GATEWAY GatewayType = "webhook"
const TELEGRAM_GATEWAY GatewayType = "telegram"
const DISCORD_GATEWAY GatewayType = "discord"
