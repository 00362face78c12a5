package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type StepKind string

const START_STEP StepKind = "start"
const SEND_MESSAGE_STEP StepKind = "sendMessage"
const SEND_EMAIL_STEP StepKind = "sendEmail"
const WAIT_STEP StepKind = "wait"
const CONDITIONAL_STEP StepKind = "conditional"

var STEP_KINDS = []StepKind{START_STEP, SEND_MESSAGE_STEP, SEND_EMAIL_STEP, WAIT_STEP, CONDITIONAL_STEP}

func ValidateStepKind(kind StepKind) error {
	for _, k := range STEP_KINDS {
		if k == kind {
			return nil
		}
	}
	return fmt.Errorf("invalid step type %s", kind)
}

// DefaultLabel is the label given to a step authored without one.
func DefaultLabel(kind StepKind) string {
	switch kind {
	case START_STEP:
		return "Flow start"
	case SEND_MESSAGE_STEP:
		return "Send message"
	case SEND_EMAIL_STEP:
		return "Send email"
	case WAIT_STEP:
		return "Wait"
	case CONDITIONAL_STEP:
		return "Condition"
	}
	return fmt.Sprintf("New %s", kind)
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Properties is the kind specific configuration of a step. Each kind has
// exactly one implementation.
type Properties interface {
	Kind() StepKind
}

type StartProperties struct{}

func (StartProperties) Kind() StepKind { return START_STEP }

type MessageProperties struct {
	Message          string `json:"message"`
	MediaUrl         string `json:"mediaUrl,omitempty"`
	ButtonText       string `json:"buttonText,omitempty"`
	AfterDelay       int    `json:"afterDelay,omitempty"`
	WaitForResponse  bool   `json:"waitForResponse,omitempty"`
	ExpectedResponse string `json:"expectedResponse,omitempty"`
}

func (MessageProperties) Kind() StepKind { return SEND_MESSAGE_STEP }

func (m MessageProperties) Delay() (time.Duration, error) {
	return DelayOf(int64(m.AfterDelay))
}

type EmailProperties struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Content   string `json:"content,omitempty"`
}

func (EmailProperties) Kind() StepKind { return SEND_EMAIL_STEP }

type DurationUnit string

const SECONDS DurationUnit = "seconds"
const MINUTES DurationUnit = "minutes"
const HOURS DurationUnit = "hours"
const DAYS DurationUnit = "days"

type WaitProperties struct {
	Duration string       `json:"duration"`
	Unit     DurationUnit `json:"durationType,omitempty"`
}

func (WaitProperties) Kind() StepKind { return WAIT_STEP }

// Seconds normalizes the authored duration to seconds. An empty unit is
// read as minutes, which is what the editor offers first.
func (w WaitProperties) Seconds() (int64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(w.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid wait duration %q", w.Duration)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid wait duration %q", w.Duration)
	}
	if value < 0 {
		return 0, fmt.Errorf("wait duration can not be negative: %q", w.Duration)
	}
	var factor float64
	switch w.Unit {
	case SECONDS:
		factor = 1
	case MINUTES, "":
		factor = 60
	case HOURS:
		factor = 60 * 60
	case DAYS:
		factor = 24 * 60 * 60
	default:
		return 0, fmt.Errorf("invalid wait duration unit %q", w.Unit)
	}
	seconds := value * factor
	if seconds > float64(MAX_DELAY_SECONDS) {
		return 0, fmt.Errorf("wait duration %s %s is too long", w.Duration, w.Unit)
	}
	return int64(seconds), nil
}

// MAX_DELAY_SECONDS is the longest delay a time.Duration can hold.
const MAX_DELAY_SECONDS int64 = math.MaxInt64 / int64(time.Second)

// DelayOf converts seconds to a duration, rejecting values that would
// overflow.
func DelayOf(seconds int64) (time.Duration, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("delay can not be negative: %d", seconds)
	}
	if seconds > MAX_DELAY_SECONDS {
		return 0, fmt.Errorf("delay of %d seconds is too long", seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

type ConditionProperties struct {
	Condition string `json:"condition"`
	Variable  string `json:"variable,omitempty"`
	Operator  string `json:"operator,omitempty"`
	Value     string `json:"value,omitempty"`
}

func (ConditionProperties) Kind() StepKind { return CONDITIONAL_STEP }

func NewProperties(kind StepKind) (Properties, error) {
	switch kind {
	case START_STEP:
		return StartProperties{}, nil
	case SEND_MESSAGE_STEP:
		return MessageProperties{}, nil
	case SEND_EMAIL_STEP:
		return EmailProperties{}, nil
	case WAIT_STEP:
		return WaitProperties{Unit: MINUTES}, nil
	case CONDITIONAL_STEP:
		return ConditionProperties{}, nil
	}
	return nil, ValidateStepKind(kind)
}

type Step struct {
	Id         string
	Kind       StepKind
	Label      string
	Position   Position
	Properties Properties
}

// NewStep builds a step with empty properties of the right variant.
func NewStep(id string, kind StepKind, label string, position Position) (Step, error) {
	props, err := NewProperties(kind)
	if err != nil {
		return Step{}, err
	}
	if len(label) == 0 {
		label = DefaultLabel(kind)
	}
	return Step{Id: id, Kind: kind, Label: label, Position: position, Properties: props}, nil
}

type stepJSON struct {
	Id         string          `json:"id"`
	Kind       StepKind        `json:"type"`
	Label      string          `json:"label"`
	Position   Position        `json:"position"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

func (s Step) MarshalJSON() ([]byte, error) {
	props := s.Properties
	if props == nil {
		var err error
		if props, err = NewProperties(s.Kind); err != nil {
			return nil, err
		}
	}
	if props.Kind() != s.Kind {
		return nil, fmt.Errorf("step %s of type %s carries %s properties", s.Id, s.Kind, props.Kind())
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stepJSON{
		Id:         s.Id,
		Kind:       s.Kind,
		Label:      s.Label,
		Position:   s.Position,
		Properties: raw,
	})
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var sj stepJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return err
	}
	props, err := decodeProperties(sj.Kind, sj.Properties)
	if err != nil {
		return fmt.Errorf("step %s: %w", sj.Id, err)
	}
	s.Id = sj.Id
	s.Kind = sj.Kind
	s.Label = sj.Label
	if len(s.Label) == 0 {
		s.Label = DefaultLabel(sj.Kind)
	}
	s.Position = sj.Position
	s.Properties = props
	return nil
}

func decodeProperties(kind StepKind, raw json.RawMessage) (Properties, error) {
	empty := len(raw) == 0 || string(raw) == "null"
	switch kind {
	case START_STEP:
		return StartProperties{}, nil
	case SEND_MESSAGE_STEP:
		var p MessageProperties
		if !empty {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
		}
		return p, nil
	case SEND_EMAIL_STEP:
		var p EmailProperties
		if !empty {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
		}
		return p, nil
	case WAIT_STEP:
		p := WaitProperties{Unit: MINUTES}
		if !empty {
			var wj struct {
				Duration json.RawMessage `json:"duration"`
				Unit     DurationUnit    `json:"durationType"`
			}
			if err := json.Unmarshal(raw, &wj); err != nil {
				return nil, err
			}
			p.Duration = rawToString(wj.Duration)
			if len(wj.Unit) != 0 {
				p.Unit = wj.Unit
			}
		}
		return p, nil
	case CONDITIONAL_STEP:
		var p ConditionProperties
		if !empty {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
		}
		return p, nil
	}
	return nil, ValidateStepKind(kind)
}

// rawToString accepts both "2" and 2 for numeric fields typed in a form.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// MergeProperties overlays patch on the JSON form of current and decodes the
// result as kind. Keys absent from patch keep their value.
func MergeProperties(kind StepKind, current Properties, patch map[string]any) (Properties, error) {
	if current == nil {
		var err error
		if current, err = NewProperties(kind); err != nil {
			return nil, err
		}
	}
	if current.Kind() != kind {
		return nil, fmt.Errorf("step of type %s carries %s properties", kind, current.Kind())
	}
	raw, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]any)
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for k, v := range patch {
		merged[k] = v
	}
	if raw, err = json.Marshal(merged); err != nil {
		return nil, err
	}
	return decodeProperties(kind, raw)
}
