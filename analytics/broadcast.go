package analytics

import (
	"sync"
	"time"
)

const SUBSCRIBER_BUFFER = 64

type EventType string

const STEP_SUCCESS_EVENT EventType = "stepSuccess"
const STEP_FAILURE_EVENT EventType = "stepFailure"
const RUN_STATUS_EVENT EventType = "runStatus"

type StepEvent struct {
	Type      EventType `json:"type"`
	FlowId    string    `json:"flowId"`
	Recipient string    `json:"recipient"`
	StepId    string    `json:"stepId,omitempty"`
	StepKind  string    `json:"stepKind,omitempty"`
	Event     string    `json:"event,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var _ StepDataCollector = new(Broadcaster)

// Broadcaster fans step events out to live subscribers. A subscriber that
// does not keep up loses events instead of blocking the run.
type Broadcaster struct {
	mu          sync.RWMutex
	nextId      int
	subscribers map[int]chan StepEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[int]chan StepEvent)}
}

// Subscribe returns the event stream and a func that ends the subscription.
func (b *Broadcaster) Subscribe() (<-chan StepEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextId
	b.nextId++
	ch := make(chan StepEvent, SUBSCRIBER_BUFFER)
	b.subscribers[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			close(ch)
		})
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Broadcaster) publish(event StepEvent) {
	event.Timestamp = time.Now().UTC()
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Broadcaster) RecordStepSuccess(flowId string, recipient string, stepId string, stepKind string, event string) {
	b.publish(StepEvent{Type: STEP_SUCCESS_EVENT, FlowId: flowId, Recipient: recipient, StepId: stepId, StepKind: stepKind, Event: event})
}

func (b *Broadcaster) RecordStepFailure(flowId string, recipient string, stepId string, stepKind string, reason string) {
	b.publish(StepEvent{Type: STEP_FAILURE_EVENT, FlowId: flowId, Recipient: recipient, StepId: stepId, StepKind: stepKind, Reason: reason})
}

func (b *Broadcaster) RecordRunStatus(flowId string, recipient string, status string) {
	b.publish(StepEvent{Type: RUN_STATUS_EVENT, FlowId: flowId, Recipient: recipient, Status: status})
}

var _ StepDataCollector = MultiCollector{}

type MultiCollector []StepDataCollector

func (m MultiCollector) RecordStepSuccess(flowId string, recipient string, stepId string, stepKind string, event string) {
	for _, c := range m {
		c.RecordStepSuccess(flowId, recipient, stepId, stepKind, event)
	}
}

func (m MultiCollector) RecordStepFailure(flowId string, recipient string, stepId string, stepKind string, reason string) {
	for _, c := range m {
		c.RecordStepFailure(flowId, recipient, stepId, stepKind, reason)
	}
}

func (m MultiCollector) RecordRunStatus(flowId string, recipient string, status string) {
	for _, c := range m {
		c.RecordRunStatus(flowId, recipient, status)
	}
}
