package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/util"
	"go.uber.org/zap"
)

var _ Action = new(sendMessageAction)

type sendMessageAction struct {
	baseAction
	props model.MessageProperties
}

func NewSendMessageAction(props model.MessageProperties, bAction baseAction) *sendMessageAction {
	return &sendMessageAction{
		baseAction: bAction,
		props:      props,
	}
}

func (s *sendMessageAction) Validate() error {
	if len(strings.TrimSpace(s.props.Message)) == 0 {
		return s.missing("a message")
	}
	if _, err := s.props.Delay(); err != nil {
		return s.invalid(err)
	}
	return nil
}

// Render builds the text delivered to the recipient.
func (s *sendMessageAction) Render(data map[string]any) string {
	return RenderMessage(s.props, data)
}

func RenderMessage(props model.MessageProperties, data map[string]any) string {
	text := util.ResolveTemplate(data, props.Message)
	if len(props.MediaUrl) != 0 {
		text = props.MediaUrl + "\n\n" + text
	}
	if len(props.ButtonText) != 0 {
		text = text + "\n\n[" + props.ButtonText + "]"
	}
	return text
}

func (s *sendMessageAction) Execute(ctx context.Context, env *Env, exec *Execution) (*Outcome, error) {
	logger.Info("running step", zap.String("label", s.label), zap.String("flow", exec.FlowId), zap.String("recipient", exec.Recipient))
	delay, err := s.props.Delay()
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", s.id, err)
	}
	cfg, err := env.Configs.GetChannelConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading channel configuration: %w", err)
	}
	if cfg.IsEmpty() {
		return nil, channel.ErrNoChannelConfig
	}
	msg := channel.Message{
		To:         exec.Recipient,
		Message:    s.Render(exec.Data),
		FlowId:     exec.FlowId,
		From:       cfg.PhoneNumber,
		WebhookUrl: cfg.WebhookUrl,
	}
	ok, err := env.Gateway.SendMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("sending message for step %s: %w", s.id, err)
	}
	if !ok {
		return nil, fmt.Errorf("message for step %s was not accepted by the channel", s.id)
	}
	if delay > 0 {
		if err := env.Delay(ctx, delay); err != nil {
			return nil, err
		}
	}
	if s.props.WaitForResponse {
		return &Outcome{Event: EVENT_DEFAULT, Suspend: true, ExpectedResponse: s.props.ExpectedResponse}, nil
	}
	return &Outcome{Event: EVENT_DEFAULT}, nil
}
