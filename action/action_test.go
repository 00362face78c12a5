package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/expression"
	"github.com/mohitkumar/funnel/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func newEnv(gateway channel.Gateway, delays *[]time.Duration) *Env {
	return &Env{
		Gateway:   gateway,
		Configs:   channel.StaticConfigProvider{Config: model.ChannelConfig{PhoneNumber: "+10"}},
		Mailer:    channel.NewLogMailer(),
		Evaluator: expression.DefaultEvaluator{},
		Delay: func(ctx context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		},
	}
}

func mustNew(t *testing.T, step model.Step) Action {
	act, err := New(step)
	require.NoError(t, err)
	return act
}

func TestValidate(t *testing.T) {
	tests := map[string]func(t *testing.T){
		"start needs nothing": func(t *testing.T) {
			act := mustNew(t, model.Step{Id: "s", Kind: model.START_STEP, Label: "Start"})
			require.NoError(t, act.Validate())
		},
		"message without text": func(t *testing.T) {
			act := mustNew(t, model.Step{Id: "m1", Kind: model.SEND_MESSAGE_STEP, Label: "Hello", Properties: model.MessageProperties{Message: "  "}})
			err := act.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), `"Hello"`)
			require.Contains(t, err.Error(), "m1")
		},
		"email reports both fields": func(t *testing.T) {
			act := mustNew(t, model.Step{Id: "e1", Kind: model.SEND_EMAIL_STEP, Label: "Mail"})
			errs := multierr.Errors(act.Validate())
			require.Len(t, errs, 2)
			require.Contains(t, errs[0].Error(), "recipient")
			require.Contains(t, errs[1].Error(), "subject")
		},
		"wait without duration": func(t *testing.T) {
			act := mustNew(t, model.Step{Id: "w1", Kind: model.WAIT_STEP, Label: "Wait"})
			require.ErrorContains(t, act.Validate(), "duration")
		},
		"wait longer than a duration can hold": func(t *testing.T) {
			act := mustNew(t, model.Step{Id: "w2", Kind: model.WAIT_STEP, Label: "Long", Properties: model.WaitProperties{Duration: "1000000", Unit: model.DAYS}})
			require.ErrorContains(t, act.Validate(), "too long")
		},
		"message delay longer than a duration can hold": func(t *testing.T) {
			act := mustNew(t, model.Step{Id: "m2", Kind: model.SEND_MESSAGE_STEP, Label: "Late", Properties: model.MessageProperties{Message: "hi", AfterDelay: int(model.MAX_DELAY_SECONDS) + 1}})
			require.ErrorContains(t, act.Validate(), "too long")
		},
		"condition without expression": func(t *testing.T) {
			act := mustNew(t, model.Step{Id: "c1", Kind: model.CONDITIONAL_STEP, Label: "Check"})
			require.ErrorContains(t, act.Validate(), "condition")
		},
		"mismatched properties": func(t *testing.T) {
			_, err := New(model.Step{Id: "x", Kind: model.WAIT_STEP, Properties: model.StartProperties{}})
			require.Error(t, err)
		},
	}
	for name, fn := range tests {
		t.Run(name, fn)
	}
}

func TestRenderMessage(t *testing.T) {
	props := model.MessageProperties{Message: "Hi {$.name}", MediaUrl: "http://img", ButtonText: "OK"}
	require.Equal(t, "http://img\n\nHi Ana\n\n[OK]", RenderMessage(props, map[string]any{"name": "Ana"}))
	require.Equal(t, "plain", RenderMessage(model.MessageProperties{Message: "plain"}, nil))
}

func TestSendMessageExecute(t *testing.T) {
	gateway := channel.NewLogGateway()
	var delays []time.Duration
	env := newEnv(gateway, &delays)
	act := mustNew(t, model.Step{Id: "m", Kind: model.SEND_MESSAGE_STEP, Label: "m", Properties: model.MessageProperties{
		Message: "hello", AfterDelay: 3, WaitForResponse: true, ExpectedResponse: "yes",
	}})
	out, err := act.Execute(context.Background(), env, &Execution{FlowId: "f", Recipient: "r"})
	require.NoError(t, err)
	require.True(t, out.Suspend)
	require.Equal(t, "yes", out.ExpectedResponse)
	require.Equal(t, []time.Duration{3 * time.Second}, delays)
	sent := gateway.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "+10", sent[0].From)
	require.Equal(t, "r", sent[0].To)
}

func TestSendMessageWithoutChannelConfig(t *testing.T) {
	gateway := channel.NewLogGateway()
	var delays []time.Duration
	env := newEnv(gateway, &delays)
	env.Configs = channel.StaticConfigProvider{}
	act := mustNew(t, model.Step{Id: "m", Kind: model.SEND_MESSAGE_STEP, Properties: model.MessageProperties{Message: "hello"}})
	_, err := act.Execute(context.Background(), env, &Execution{FlowId: "f", Recipient: "r"})
	require.True(t, errors.Is(err, channel.ErrNoChannelConfig))
	require.Empty(t, gateway.Sent())
}

func TestSendEmailExecute(t *testing.T) {
	var delays []time.Duration
	env := newEnv(channel.NewLogGateway(), &delays)
	mailer := channel.NewLogMailer()
	env.Mailer = mailer
	act := mustNew(t, model.Step{Id: "e", Kind: model.SEND_EMAIL_STEP, Properties: model.EmailProperties{
		Recipient: "{$.email}", Subject: "Hi {$.name}", Content: "body",
	}})
	_, err := act.Execute(context.Background(), env, &Execution{Recipient: "r", Data: map[string]any{"email": "a@b.c", "name": "Ana"}})
	require.NoError(t, err)
	require.Equal(t, []channel.Email{{To: "a@b.c", Subject: "Hi Ana", Content: "body"}}, mailer.Sent())

	env.Mailer = nil
	_, err = act.Execute(context.Background(), env, &Execution{Recipient: "r"})
	require.ErrorIs(t, err, channel.ErrNoMailer)
}

func TestWaitExecute(t *testing.T) {
	var delays []time.Duration
	env := newEnv(channel.NewLogGateway(), &delays)
	act := mustNew(t, model.Step{Id: "w", Kind: model.WAIT_STEP, Properties: model.WaitProperties{Duration: "2", Unit: model.HOURS}})
	out, err := act.Execute(context.Background(), env, &Execution{})
	require.NoError(t, err)
	require.Equal(t, EVENT_DEFAULT, out.Event)
	require.Equal(t, []time.Duration{2 * time.Hour}, delays)
}

func TestOversizedDelaysFailInsteadOfSkipping(t *testing.T) {
	gateway := channel.NewLogGateway()
	var delays []time.Duration
	env := newEnv(gateway, &delays)

	wait := mustNew(t, model.Step{Id: "w", Kind: model.WAIT_STEP, Properties: model.WaitProperties{Duration: "1000000", Unit: model.DAYS}})
	_, err := wait.Execute(context.Background(), env, &Execution{})
	require.ErrorContains(t, err, "too long")

	msg := mustNew(t, model.Step{Id: "m", Kind: model.SEND_MESSAGE_STEP, Properties: model.MessageProperties{Message: "hi", AfterDelay: int(model.MAX_DELAY_SECONDS) + 1}})
	_, err = msg.Execute(context.Background(), env, &Execution{FlowId: "f", Recipient: "r"})
	require.ErrorContains(t, err, "too long")

	require.Empty(t, delays)
	require.Empty(t, gateway.Sent())
}

func TestConditionalExecute(t *testing.T) {
	var delays []time.Duration
	env := newEnv(channel.NewLogGateway(), &delays)
	act := mustNew(t, model.Step{Id: "c", Kind: model.CONDITIONAL_STEP, Properties: model.ConditionProperties{Condition: "age > 18"}})

	out, err := act.Execute(context.Background(), env, &Execution{Data: map[string]any{"age": 20}})
	require.NoError(t, err)
	require.Equal(t, EVENT_TRUE, out.Event)

	out, err = act.Execute(context.Background(), env, &Execution{Data: map[string]any{"age": 10}})
	require.NoError(t, err)
	require.Equal(t, EVENT_FALSE, out.Event)

	broken := mustNew(t, model.Step{Id: "c", Kind: model.CONDITIONAL_STEP, Properties: model.ConditionProperties{Condition: "alert(1)"}})
	out, err = broken.Execute(context.Background(), env, &Execution{})
	require.NoError(t, err)
	require.Equal(t, EVENT_FALSE, out.Event)
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	require.NoError(t, Sleep(context.Background(), 0))
}
