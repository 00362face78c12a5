package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/flow"
	"github.com/mohitkumar/funnel/model"
	"github.com/stretchr/testify/require"
)

type recordingDelay struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingDelay) delay(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

type rejectingGateway struct{}

func (rejectingGateway) SendMessage(ctx context.Context, msg channel.Message) (bool, error) {
	return false, nil
}

type countingCollector struct {
	success  int
	failure  int
	statuses []string
}

func (c *countingCollector) RecordStepSuccess(flowId, recipient, stepId, stepKind, event string) {
	c.success++
}

func (c *countingCollector) RecordStepFailure(flowId, recipient, stepId, stepKind, reason string) {
	c.failure++
}

func (c *countingCollector) RecordRunStatus(flowId, recipient, status string) {
	c.statuses = append(c.statuses, status)
}

var configured = channel.StaticConfigProvider{Config: model.ChannelConfig{PhoneNumber: "+100", WebhookUrl: "http://hook"}}

func step(id string, kind model.StepKind, props model.Properties) model.Step {
	return model.Step{Id: id, Kind: kind, Label: id, Properties: props}
}

func link(source, target string) model.Link {
	return model.Link{Id: source + "-" + target, Source: source, Target: target}
}

func convert(t *testing.T, g *model.Flow) *flow.Flow {
	fl, err := flow.Convert(g)
	require.NoError(t, err)
	return fl
}

func ageFlow() *model.Flow {
	return &model.Flow{
		Id: "age",
		Steps: []model.Step{
			step("start", model.START_STEP, model.StartProperties{}),
			step("check", model.CONDITIONAL_STEP, model.ConditionProperties{Condition: "age > 18"}),
			step("adult", model.SEND_MESSAGE_STEP, model.MessageProperties{Message: "Welcome {$.name}"}),
			step("minor", model.SEND_MESSAGE_STEP, model.MessageProperties{Message: "Too young"}),
		},
		Links: []model.Link{link("start", "check"), link("check", "adult"), link("check", "minor")},
	}
}

func replyFlow() *model.Flow {
	return &model.Flow{
		Id: "reply",
		Steps: []model.Step{
			step("start", model.START_STEP, model.StartProperties{}),
			step("ask", model.SEND_MESSAGE_STEP, model.MessageProperties{Message: "Continue?", WaitForResponse: true, ExpectedResponse: "yes"}),
			step("thanks", model.SEND_MESSAGE_STEP, model.MessageProperties{Message: "You said {$.lastResponse}"}),
		},
		Links: []model.Link{link("start", "ask"), link("ask", "thanks")},
	}
}

func TestExecuteFlowBranches(t *testing.T) {
	for scenario, tc := range map[string]struct {
		data     map[string]any
		expected string
	}{
		"adult":         {data: map[string]any{"age": 30, "name": "Ana"}, expected: "Welcome Ana"},
		"minor":         {data: map[string]any{"age": 12}, expected: "Too young"},
		"missing value": {data: map[string]any{}, expected: "Too young"},
	} {
		t.Run(scenario, func(t *testing.T) {
			gateway := channel.NewLogGateway()
			e := New(gateway, configured)
			res, err := e.ExecuteFlow(context.Background(), convert(t, ageFlow()), "555", tc.data)
			require.NoError(t, err)
			require.Equal(t, model.EXECUTION_COMPLETED, res.Status)
			sent := gateway.Sent()
			require.Len(t, sent, 1)
			require.Equal(t, tc.expected, sent[0].Message)
			require.Equal(t, "555", sent[0].To)
			require.Equal(t, "age", sent[0].FlowId)
			require.Equal(t, "+100", sent[0].From)
		})
	}
}

func TestFalseWithoutFalseBranchTerminates(t *testing.T) {
	g := ageFlow()
	g.Links[1].Branch = model.BoolPtr(true)
	g.Links[2].Branch = model.BoolPtr(true)
	gateway := channel.NewLogGateway()
	res, err := New(gateway, configured).ExecuteFlow(context.Background(), convert(t, g), "555", map[string]any{"age": 1})
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, res.Status)
	require.Empty(t, gateway.Sent())
}

func TestSingleConditionalLinkIsUnconditional(t *testing.T) {
	g := ageFlow()
	g.Links = g.Links[:2]
	gateway := channel.NewLogGateway()
	_, err := New(gateway, configured).ExecuteFlow(context.Background(), convert(t, g), "555", map[string]any{"age": 1})
	require.NoError(t, err)
	require.Len(t, gateway.Sent(), 1)
}

func TestSuspendAndResume(t *testing.T) {
	gateway := channel.NewLogGateway()
	collector := &countingCollector{}
	e := New(gateway, configured, WithCollector(collector))
	fl := convert(t, replyFlow())
	input := map[string]any{"name": "Ana"}

	res, err := e.ExecuteFlow(context.Background(), fl, "555", input)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_WAITING_RESPONSE, res.Status)
	require.Equal(t, "thanks", res.NextStepId)
	require.Equal(t, "yes", res.ExpectedResponse)
	require.Len(t, gateway.Sent(), 1)

	session := res.Session()
	require.Equal(t, "thanks", session.CurrentStepId)

	res, err = e.Resume(context.Background(), fl, session, "no way")
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_WAITING_RESPONSE, res.Status)
	require.Equal(t, "thanks", res.NextStepId)
	require.Len(t, gateway.Sent(), 1)

	res, err = e.Resume(context.Background(), fl, session, "YES please")
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, res.Status)
	require.Equal(t, "YES please", res.Context[LAST_RESPONSE_KEY])
	sent := gateway.Sent()
	require.Len(t, sent, 2)
	require.Equal(t, "You said YES please", sent[1].Message)

	_, touched := input[LAST_RESPONSE_KEY]
	require.False(t, touched)
	_, touched = session.Context[LAST_RESPONSE_KEY]
	require.False(t, touched)
	require.Equal(t, []string{"waiting_response", "completed"}, collector.statuses)
}

func TestMissingChannelConfigAborts(t *testing.T) {
	gateway := channel.NewLogGateway()
	collector := &countingCollector{}
	e := New(gateway, channel.StaticConfigProvider{}, WithCollector(collector))
	_, err := e.ExecuteFlow(context.Background(), convert(t, replyFlow()), "555", nil)
	require.True(t, errors.Is(err, channel.ErrNoChannelConfig))
	require.Empty(t, gateway.Sent())
	require.Equal(t, 1, collector.failure)
}

func TestRejectedMessageFails(t *testing.T) {
	_, err := New(rejectingGateway{}, configured).ExecuteFlow(context.Background(), convert(t, replyFlow()), "555", nil)
	require.Error(t, err)
}

func TestDelaysAreNormalizedToSeconds(t *testing.T) {
	g := &model.Flow{
		Id: "delays",
		Steps: []model.Step{
			step("start", model.START_STEP, model.StartProperties{}),
			step("hello", model.SEND_MESSAGE_STEP, model.MessageProperties{Message: "hi", AfterDelay: 5}),
			step("wait", model.WAIT_STEP, model.WaitProperties{Duration: "2", Unit: model.HOURS}),
			step("days", model.WAIT_STEP, model.WaitProperties{Duration: "1", Unit: model.DAYS}),
			step("bye", model.SEND_MESSAGE_STEP, model.MessageProperties{Message: "bye"}),
		},
		Links: []model.Link{link("start", "hello"), link("hello", "wait"), link("wait", "days"), link("days", "bye")},
	}
	delays := &recordingDelay{}
	gateway := channel.NewLogGateway()
	res, err := New(gateway, configured, WithDelay(delays.delay)).ExecuteFlow(context.Background(), convert(t, g), "555", nil)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, res.Status)
	require.Equal(t, []time.Duration{5 * time.Second, 7200 * time.Second, 86400 * time.Second}, delays.delays)
	require.Len(t, gateway.Sent(), 2)
}

func TestNoEntryStep(t *testing.T) {
	g := &model.Flow{
		Id:    "cycle",
		Steps: []model.Step{step("a", model.WAIT_STEP, model.WaitProperties{Duration: "1"}), step("b", model.WAIT_STEP, model.WaitProperties{Duration: "1"})},
		Links: []model.Link{link("a", "b"), link("b", "a")},
	}
	_, err := New(channel.NewLogGateway(), configured).ExecuteFlow(context.Background(), convert(t, g), "555", nil)
	require.Error(t, err)
}

func TestStepLimit(t *testing.T) {
	g := &model.Flow{
		Id: "loop",
		Steps: []model.Step{
			step("start", model.START_STEP, model.StartProperties{}),
			step("a", model.WAIT_STEP, model.WaitProperties{Duration: "0"}),
			step("b", model.WAIT_STEP, model.WaitProperties{Duration: "0"}),
		},
		Links: []model.Link{link("start", "a"), link("a", "b"), link("b", "a")},
	}
	delays := &recordingDelay{}
	_, err := New(channel.NewLogGateway(), configured, WithDelay(delays.delay), WithMaxSteps(10)).ExecuteFlow(context.Background(), convert(t, g), "555", nil)
	require.ErrorIs(t, err, ErrStepLimitExceeded)
}

func TestProcessStepUnknownStep(t *testing.T) {
	_, err := New(channel.NewLogGateway(), configured).ProcessStep(context.Background(), convert(t, ageFlow()), "nope", "555", nil)
	require.Error(t, err)
}

func TestMatches(t *testing.T) {
	require.True(t, Matches("", "anything"))
	require.True(t, Matches("Yes", "oh yes!"))
	require.True(t, Matches(" yes ", "YES"))
	require.False(t, Matches("yes", "no"))
}
