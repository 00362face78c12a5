package action

import (
	"context"
	"fmt"
	"time"

	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/expression"
	"github.com/mohitkumar/funnel/model"
)

const EVENT_DEFAULT = "default"
const EVENT_TRUE = "true"
const EVENT_FALSE = "false"

// DelayFunc blocks for d or until ctx is done.
type DelayFunc func(ctx context.Context, d time.Duration) error

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Env carries the collaborators a step needs to run.
type Env struct {
	Gateway   channel.Gateway
	Configs   channel.ConfigProvider
	Mailer    channel.Mailer
	Evaluator expression.Evaluator
	Delay     DelayFunc
}

type Execution struct {
	FlowId    string
	Recipient string
	Data      map[string]any
}

// Outcome is what a step decided. Event selects the outgoing link, Suspend
// stops the run until the recipient answers.
type Outcome struct {
	Event            string
	Suspend          bool
	ExpectedResponse string
}

type Action interface {
	GetId() string
	GetLabel() string
	GetKind() model.StepKind
	Validate() error
	Execute(ctx context.Context, env *Env, exec *Execution) (*Outcome, error)
}

var _ Action = new(baseAction)

type baseAction struct {
	id    string
	label string
	kind  model.StepKind
}

func NewBaseAction(id string, kind model.StepKind, label string) *baseAction {
	return &baseAction{
		id:    id,
		label: label,
		kind:  kind,
	}
}

func (ba *baseAction) GetId() string {
	return ba.id
}

func (ba *baseAction) GetLabel() string {
	return ba.label
}

func (ba *baseAction) GetKind() model.StepKind {
	return ba.kind
}

func (ba *baseAction) Execute(ctx context.Context, env *Env, exec *Execution) (*Outcome, error) {
	return nil, fmt.Errorf("can not execute step %s of type %s", ba.id, ba.kind)
}

func (ba *baseAction) Validate() error {
	return fmt.Errorf("step %s implementation not found", ba.label)
}

func (ba *baseAction) missing(what string) error {
	return fmt.Errorf("step %q (id: %s) must have %s", ba.label, ba.id, what)
}

func (ba *baseAction) invalid(err error) error {
	return fmt.Errorf("step %q (id: %s) is invalid: %w", ba.label, ba.id, err)
}

// New returns the action for a step. Steps without properties get the empty
// variant of their kind so validation can report what is missing.
func New(step model.Step) (Action, error) {
	props := step.Properties
	if props == nil {
		var err error
		if props, err = model.NewProperties(step.Kind); err != nil {
			return nil, err
		}
	}
	if props.Kind() != step.Kind {
		return nil, fmt.Errorf("step %s of type %s carries %s properties", step.Id, step.Kind, props.Kind())
	}
	base := *NewBaseAction(step.Id, step.Kind, step.Label)
	switch p := props.(type) {
	case model.StartProperties:
		return NewStartAction(base), nil
	case model.MessageProperties:
		return NewSendMessageAction(p, base), nil
	case model.EmailProperties:
		return NewSendEmailAction(p, base), nil
	case model.WaitProperties:
		return NewWaitAction(p, base), nil
	case model.ConditionProperties:
		return NewConditionalAction(p, base), nil
	}
	return nil, model.ValidateStepKind(step.Kind)
}

var _ Action = new(startAction)

type startAction struct {
	baseAction
}

func NewStartAction(bAction baseAction) *startAction {
	return &startAction{baseAction: bAction}
}

func (s *startAction) Validate() error {
	return nil
}

func (s *startAction) Execute(ctx context.Context, env *Env, exec *Execution) (*Outcome, error) {
	return &Outcome{Event: EVENT_DEFAULT}, nil
}
