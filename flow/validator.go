package flow

import (
	"fmt"

	"github.com/mohitkumar/funnel/action"
	"github.com/mohitkumar/funnel/model"
	"go.uber.org/multierr"
)

const MISSING_START_ERROR = "flow must have a start step"

// Validate checks a graph for structural and per step completeness. It never
// fails; every problem found is returned in the result, in rule order.
func Validate(steps []model.Step, links []model.Link) model.ValidationResult {
	errs := make([]string, 0)

	hasStart := false
	for _, step := range steps {
		if step.Kind == model.START_STEP {
			hasStart = true
			break
		}
	}
	if !hasStart {
		errs = append(errs, MISSING_START_ERROR)
	}

	if n := countDisconnected(steps, links); n > 0 {
		errs = append(errs, fmt.Sprintf("there are %d disconnected or misconfigured steps in the flow", n))
	}

	for _, step := range steps {
		act, err := action.New(step)
		if err != nil {
			errs = append(errs, fmt.Sprintf("step %q (id: %s) is invalid: %s", step.Label, step.Id, err.Error()))
			continue
		}
		for _, e := range multierr.Errors(act.Validate()) {
			errs = append(errs, e.Error())
		}
	}
	return model.ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func ValidateFlow(fl *model.Flow) model.ValidationResult {
	return Validate(fl.Steps, fl.Links)
}

func requiresOutput(kind model.StepKind) bool {
	return kind != model.SEND_MESSAGE_STEP && kind != model.SEND_EMAIL_STEP
}

// countDisconnected counts steps missing a required incoming link or a
// required outgoing link.
func countDisconnected(steps []model.Step, links []model.Link) int {
	count := 0
	for _, step := range steps {
		hasInput := step.Kind == model.START_STEP || len(model.IncomingLinks(links, step.Id)) > 0
		hasOutput := len(model.OutgoingLinks(links, step.Id)) > 0
		if !hasInput || (requiresOutput(step.Kind) && !hasOutput) {
			count++
		}
	}
	return count
}
