package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mohitkumar/funnel/cache"
	"github.com/mohitkumar/funnel/engine"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/mohitkumar/funnel/util"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var ErrNoActiveSession = errors.New("no active session")
var ErrQueueFull = errors.New("execution queue is full")
var ErrSessionAbandoned = errors.New("session abandoned")

type InvalidFlowError struct {
	FlowId string
	Errors []string
}

func (e InvalidFlowError) Error() string {
	return fmt.Sprintf("flow %s is not valid: %s", e.FlowId, strings.Join(e.Errors, "; "))
}

// FlowSource resolves the runnable form of a stored flow.
type FlowSource interface {
	GetExecutable(ctx context.Context, id string) (*cache.Entry, error)
}

type executionTask struct {
	flowId    string
	recipient string
	input     map[string]any
}

// ExecutionService starts runs and feeds replies to suspended ones. Between a
// suspension and the reply, the run lives only as a stored session.
type ExecutionService struct {
	flows    FlowSource
	sessions persistence.SessionDao
	engine   *engine.Engine
	worker   *util.Worker
	now      func() time.Time
}

func NewExecutionService(flows FlowSource, sessions persistence.SessionDao, eng *engine.Engine, capacity int, wg *sync.WaitGroup) *ExecutionService {
	s := &ExecutionService{
		flows:    flows,
		sessions: sessions,
		engine:   eng,
		now:      time.Now,
	}
	s.worker = util.NewWorker("executor", wg, s.handleTask, capacity)
	return s
}

func (s *ExecutionService) Start() {
	s.worker.Start()
}

func (s *ExecutionService) Stop() {
	s.worker.Stop()
}

// Trigger runs a flow for recipient until it ends or waits for a reply.
func (s *ExecutionService) Trigger(ctx context.Context, flowId string, recipient string, input map[string]any) (*model.ExecutionResult, error) {
	entry, err := s.flows.GetExecutable(ctx, flowId)
	if err != nil {
		return nil, err
	}
	if !entry.Validation.IsValid {
		return nil, InvalidFlowError{FlowId: flowId, Errors: entry.Validation.Errors}
	}
	res, err := s.engine.ExecuteFlow(ctx, entry.Flow, recipient, input)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// TriggerAsync queues a run and returns without waiting for it.
func (s *ExecutionService) TriggerAsync(flowId string, recipient string, input map[string]any) error {
	task := executionTask{flowId: flowId, recipient: recipient, input: input}
	if !s.worker.TrySend(task) {
		return ErrQueueFull
	}
	return nil
}

func (s *ExecutionService) handleTask(t util.Task) error {
	task, ok := t.(executionTask)
	if !ok {
		return fmt.Errorf("unexpected task %T", t)
	}
	res, err := s.Trigger(context.Background(), task.flowId, task.recipient, task.input)
	if err != nil {
		return err
	}
	logger.Info("execution finished", zap.String("flow", task.flowId), zap.String("recipient", task.recipient), zap.String("status", string(res.Status)))
	return nil
}

// HandleReply resumes the run of flowId waiting on recipient.
func (s *ExecutionService) HandleReply(ctx context.Context, flowId string, recipient string, text string) (*model.ExecutionResult, error) {
	session, err := s.sessions.GetSession(ctx, flowId, recipient)
	if err != nil {
		if errors.Is(err, persistence.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: flow %s recipient %s", ErrNoActiveSession, flowId, recipient)
		}
		return nil, err
	}
	return s.resume(ctx, *session, text)
}

// HandleInbound resumes every run waiting on recipient. It serves channels
// that know who wrote but not which flow the reply belongs to.
func (s *ExecutionService) HandleInbound(ctx context.Context, recipient string, text string) ([]model.ExecutionResult, error) {
	sessions, err := s.sessions.GetSessionsByRecipient(ctx, recipient)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: recipient %s", ErrNoActiveSession, recipient)
	}
	var errs error
	results := make([]model.ExecutionResult, 0, len(sessions))
	for _, session := range sessions {
		res, err := s.resume(ctx, session, text)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		results = append(results, *res)
	}
	return results, errs
}

// OnInbound adapts HandleInbound to the channel gateways' reply callback.
func (s *ExecutionService) OnInbound(ctx context.Context, recipient string, text string) {
	if _, err := s.HandleInbound(ctx, recipient, text); err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			logger.Debug("inbound message without active session", zap.String("recipient", recipient))
			return
		}
		logger.Error("error handling inbound message", zap.String("recipient", recipient), zap.Error(err))
	}
}

func (s *ExecutionService) resume(ctx context.Context, session model.Session, text string) (*model.ExecutionResult, error) {
	entry, err := s.flows.GetExecutable(ctx, session.FlowId)
	if errors.Is(err, persistence.ErrFlowNotFound) {
		return nil, s.abandon(ctx, session, err)
	}
	if err != nil {
		return nil, err
	}
	if _, ok := entry.Flow.Action(session.CurrentStepId); !ok {
		return nil, s.abandon(ctx, session, fmt.Errorf("%w: %s", engine.ErrStepNotFound, session.CurrentStepId))
	}
	res, err := s.engine.Resume(ctx, entry.Flow, session, text)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// abandon drops a session whose flow or waiting step no longer exists, so
// later replies stop failing against it.
func (s *ExecutionService) abandon(ctx context.Context, session model.Session, cause error) error {
	logger.Info("abandoning session", zap.String("flow", session.FlowId), zap.String("recipient", session.Recipient), zap.Error(cause))
	err := fmt.Errorf("%w: flow %s recipient %s: %w", ErrSessionAbandoned, session.FlowId, session.Recipient, cause)
	if delErr := s.sessions.DeleteSession(ctx, session.FlowId, session.Recipient); delErr != nil {
		return multierr.Append(err, delErr)
	}
	return err
}

func (s *ExecutionService) persist(ctx context.Context, res *model.ExecutionResult) error {
	if res.Status == model.EXECUTION_WAITING_RESPONSE {
		session := res.Session()
		session.UpdatedAt = s.now().UTC()
		return s.sessions.SaveSession(ctx, session)
	}
	return s.sessions.DeleteSession(ctx, res.FlowId, res.Recipient)
}
