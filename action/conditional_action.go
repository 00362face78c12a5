package action

import (
	"context"
	"strconv"
	"strings"

	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"go.uber.org/zap"
)

var _ Action = new(conditionalAction)

type conditionalAction struct {
	baseAction
	props model.ConditionProperties
}

func NewConditionalAction(props model.ConditionProperties, bAction baseAction) *conditionalAction {
	return &conditionalAction{
		baseAction: bAction,
		props:      props,
	}
}

func (c *conditionalAction) Validate() error {
	if len(strings.TrimSpace(c.props.Condition)) == 0 {
		return c.missing("a condition")
	}
	return nil
}

// Execute never fails: a condition that can not be evaluated is false.
func (c *conditionalAction) Execute(ctx context.Context, env *Env, exec *Execution) (*Outcome, error) {
	result, err := env.Evaluator.EvaluateCondition(c.props, exec.Data)
	if err != nil {
		logger.Warn("condition evaluation failed, taking false branch", zap.String("label", c.label), zap.String("flow", exec.FlowId), zap.Error(err))
		result = false
	}
	return &Outcome{Event: strconv.FormatBool(result)}, nil
}
