package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/util"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var _ Action = new(sendEmailAction)

type sendEmailAction struct {
	baseAction
	props model.EmailProperties
}

func NewSendEmailAction(props model.EmailProperties, bAction baseAction) *sendEmailAction {
	return &sendEmailAction{
		baseAction: bAction,
		props:      props,
	}
}

func (s *sendEmailAction) Validate() error {
	var err error
	if len(strings.TrimSpace(s.props.Recipient)) == 0 {
		err = multierr.Append(err, s.missing("a recipient"))
	}
	if len(strings.TrimSpace(s.props.Subject)) == 0 {
		err = multierr.Append(err, s.missing("a subject"))
	}
	return err
}

func (s *sendEmailAction) Execute(ctx context.Context, env *Env, exec *Execution) (*Outcome, error) {
	logger.Info("running step", zap.String("label", s.label), zap.String("flow", exec.FlowId), zap.String("recipient", exec.Recipient))
	if env.Mailer == nil {
		return nil, channel.ErrNoMailer
	}
	to := util.ResolveTemplate(exec.Data, s.props.Recipient)
	if len(strings.TrimSpace(to)) == 0 {
		to = exec.Recipient
	}
	email := channel.Email{
		To:      to,
		Subject: util.ResolveTemplate(exec.Data, s.props.Subject),
		Content: util.ResolveTemplate(exec.Data, s.props.Content),
	}
	if err := env.Mailer.SendEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("sending email for step %s: %w", s.id, err)
	}
	return &Outcome{Event: EVENT_DEFAULT}, nil
}
