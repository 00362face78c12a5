package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"go.uber.org/zap"
)

var _ Action = new(waitAction)

type waitAction struct {
	baseAction
	props model.WaitProperties
}

func NewWaitAction(props model.WaitProperties, bAction baseAction) *waitAction {
	return &waitAction{
		baseAction: bAction,
		props:      props,
	}
}

func (w *waitAction) Validate() error {
	if len(strings.TrimSpace(w.props.Duration)) == 0 {
		return w.missing("a duration")
	}
	if _, err := w.props.Seconds(); err != nil {
		return w.invalid(err)
	}
	return nil
}

func (w *waitAction) Execute(ctx context.Context, env *Env, exec *Execution) (*Outcome, error) {
	seconds, err := w.props.Seconds()
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", w.id, err)
	}
	delay, err := model.DelayOf(seconds)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", w.id, err)
	}
	logger.Info("waiting", zap.String("label", w.label), zap.String("flow", exec.FlowId), zap.Int64("seconds", seconds))
	if err := env.Delay(ctx, delay); err != nil {
		return nil, err
	}
	return &Outcome{Event: EVENT_DEFAULT}, nil
}
