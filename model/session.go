package model

import "time"

type ExecutionStatus string

const EXECUTION_COMPLETED ExecutionStatus = "completed"
const EXECUTION_WAITING_RESPONSE ExecutionStatus = "waiting_response"

// Session is the state a caller keeps for a suspended execution.
type Session struct {
	FlowId           string         `json:"flowId"`
	Recipient        string         `json:"recipient"`
	CurrentStepId    string         `json:"currentStepId"`
	ExpectedResponse string         `json:"expectedResponse,omitempty"`
	Context          map[string]any `json:"context"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type ExecutionResult struct {
	Status           ExecutionStatus `json:"status"`
	FlowId           string          `json:"flowId"`
	Recipient        string          `json:"recipient"`
	NextStepId       string          `json:"nextStepId,omitempty"`
	ExpectedResponse string          `json:"expectedResponse,omitempty"`
	Context          map[string]any  `json:"context,omitempty"`
}

// Session returns the record to keep until an inbound reply resumes the run.
func (r *ExecutionResult) Session() Session {
	return Session{
		FlowId:           r.FlowId,
		Recipient:        r.Recipient,
		CurrentStepId:    r.NextStepId,
		ExpectedResponse: r.ExpectedResponse,
		Context:          r.Context,
	}
}

type ExecutionRequest struct {
	Recipient string         `json:"recipient"`
	Context   map[string]any `json:"context"`
	Async     bool           `json:"async"`
}

type InboundReply struct {
	FlowId    string `json:"flowId"`
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// ChannelConfig is the sender side configuration a message step needs.
type ChannelConfig struct {
	PhoneNumber string `json:"phoneNumber"`
	WebhookUrl  string `json:"webhookUrl"`
}

func (c *ChannelConfig) IsEmpty() bool {
	return c == nil || (len(c.PhoneNumber) == 0 && len(c.WebhookUrl) == 0)
}
