// Package engine runs a stored flow for one recipient. A run either ends or
// suspends on a step that waits for a reply; the caller keeps the returned
// session and hands it back to Resume when the reply arrives.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohae/deepcopy"
	"github.com/mohitkumar/funnel/action"
	"github.com/mohitkumar/funnel/analytics"
	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/expression"
	"github.com/mohitkumar/funnel/flow"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"go.uber.org/zap"
)

const LAST_RESPONSE_KEY = "lastResponse"
const DEFAULT_MAX_STEPS = 1000

var ErrStepLimitExceeded = errors.New("step limit exceeded")
var ErrStepNotFound = errors.New("step not found")

type StepResult struct {
	StepId           string
	NextStepId       string
	Suspended        bool
	ExpectedResponse string
	Context          map[string]any
}

type Engine struct {
	env       *action.Env
	collector analytics.StepDataCollector
	maxSteps  int
}

type Option func(*Engine)

func WithMailer(mailer channel.Mailer) Option {
	return func(e *Engine) {
		e.env.Mailer = mailer
	}
}

func WithEvaluator(evaluator expression.Evaluator) Option {
	return func(e *Engine) {
		e.env.Evaluator = evaluator
	}
}

// WithDelay replaces the timer used for post send delays and wait steps.
func WithDelay(delay action.DelayFunc) Option {
	return func(e *Engine) {
		e.env.Delay = delay
	}
}

func WithCollector(collector analytics.StepDataCollector) Option {
	return func(e *Engine) {
		e.collector = collector
	}
}

// WithMaxSteps bounds the number of steps a single call may run, so a cycle
// without a reply step can not spin forever.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

func New(gateway channel.Gateway, configs channel.ConfigProvider, opts ...Option) *Engine {
	e := &Engine{
		env: &action.Env{
			Gateway:   gateway,
			Configs:   configs,
			Evaluator: expression.DefaultEvaluator{},
			Delay:     action.Sleep,
		},
		collector: analytics.NoopCollector{},
		maxSteps:  DEFAULT_MAX_STEPS,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessStep executes one step and resolves the step that follows it.
func (e *Engine) ProcessStep(ctx context.Context, fl *flow.Flow, stepId string, recipient string, data map[string]any) (*StepResult, error) {
	act, ok := fl.Action(stepId)
	if !ok {
		return nil, fmt.Errorf("%w: %s in flow %s", ErrStepNotFound, stepId, fl.Id)
	}
	exec := &action.Execution{
		FlowId:    fl.Id,
		Recipient: recipient,
		Data:      data,
	}
	out, err := act.Execute(ctx, e.env, exec)
	if err != nil {
		e.collector.RecordStepFailure(fl.Id, recipient, stepId, string(act.GetKind()), err.Error())
		logger.Error("step failed", zap.String("flow", fl.Id), zap.String("step", stepId), zap.String("recipient", recipient), zap.Error(err))
		return nil, fmt.Errorf("step %s: %w", stepId, err)
	}
	e.collector.RecordStepSuccess(fl.Id, recipient, stepId, string(act.GetKind()), out.Event)
	return &StepResult{
		StepId:           stepId,
		NextStepId:       fl.Next(stepId, out.Event),
		Suspended:        out.Suspend,
		ExpectedResponse: out.ExpectedResponse,
		Context:          data,
	}, nil
}

// ExecuteFlow runs fl from its entry step. The input context is copied and
// never modified.
func (e *Engine) ExecuteFlow(ctx context.Context, fl *flow.Flow, recipient string, data map[string]any) (*model.ExecutionResult, error) {
	entry, err := fl.Entry()
	if err != nil {
		return nil, err
	}
	logger.Info("executing flow", zap.String("flow", fl.Id), zap.String("recipient", recipient))
	return e.run(ctx, fl, entry, recipient, copyContext(data))
}

// Resume continues a suspended run with the reply text. A reply that does
// not match the expected response leaves the session waiting, unchanged.
func (e *Engine) Resume(ctx context.Context, fl *flow.Flow, session model.Session, inboundText string) (*model.ExecutionResult, error) {
	if !Matches(session.ExpectedResponse, inboundText) {
		logger.Info("reply does not match expected response", zap.String("flow", fl.Id), zap.String("recipient", session.Recipient))
		return &model.ExecutionResult{
			Status:           model.EXECUTION_WAITING_RESPONSE,
			FlowId:           fl.Id,
			Recipient:        session.Recipient,
			NextStepId:       session.CurrentStepId,
			ExpectedResponse: session.ExpectedResponse,
			Context:          session.Context,
		}, nil
	}
	data := copyContext(session.Context)
	data[LAST_RESPONSE_KEY] = inboundText
	logger.Info("resuming flow", zap.String("flow", fl.Id), zap.String("recipient", session.Recipient), zap.String("step", session.CurrentStepId))
	return e.run(ctx, fl, session.CurrentStepId, session.Recipient, data)
}

func (e *Engine) run(ctx context.Context, fl *flow.Flow, current string, recipient string, data map[string]any) (*model.ExecutionResult, error) {
	for steps := 0; len(current) != 0; steps++ {
		if steps >= e.maxSteps {
			return nil, fmt.Errorf("flow %s: %w after %d steps", fl.Id, ErrStepLimitExceeded, steps)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := e.ProcessStep(ctx, fl, current, recipient, data)
		if err != nil {
			return nil, err
		}
		data = res.Context
		if res.Suspended {
			e.collector.RecordRunStatus(fl.Id, recipient, string(model.EXECUTION_WAITING_RESPONSE))
			return &model.ExecutionResult{
				Status:           model.EXECUTION_WAITING_RESPONSE,
				FlowId:           fl.Id,
				Recipient:        recipient,
				NextStepId:       res.NextStepId,
				ExpectedResponse: res.ExpectedResponse,
				Context:          data,
			}, nil
		}
		current = res.NextStepId
	}
	e.collector.RecordRunStatus(fl.Id, recipient, string(model.EXECUTION_COMPLETED))
	return &model.ExecutionResult{
		Status:    model.EXECUTION_COMPLETED,
		FlowId:    fl.Id,
		Recipient: recipient,
		Context:   data,
	}, nil
}

// Matches reports whether a reply satisfies an expected response: a case
// insensitive substring check. An empty expectation accepts any reply.
func Matches(expected string, text string) bool {
	expected = strings.TrimSpace(expected)
	if len(expected) == 0 {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(expected))
}

func copyContext(data map[string]any) map[string]any {
	if data == nil {
		return make(map[string]any)
	}
	return deepcopy.Copy(data).(map[string]any)
}
