package flow

import (
	"fmt"

	"github.com/mohitkumar/funnel/action"
	"github.com/mohitkumar/funnel/model"
)

// Flow is the executable view of a stored flow: one action per step plus the
// graph used to route between them. It is read only once built.
type Flow struct {
	Id      string
	Name    string
	Graph   *model.Flow
	Actions map[string]action.Action
}

func Convert(fl *model.Flow) (*Flow, error) {
	actionMap := make(map[string]action.Action, len(fl.Steps))
	for _, step := range fl.Steps {
		if _, ok := actionMap[step.Id]; ok {
			return nil, fmt.Errorf("step id %s is duplicate", step.Id)
		}
		act, err := action.New(step)
		if err != nil {
			return nil, err
		}
		actionMap[step.Id] = act
	}
	return &Flow{
		Id:      fl.Id,
		Name:    fl.Name,
		Graph:   fl,
		Actions: actionMap,
	}, nil
}

func (f *Flow) Action(stepId string) (action.Action, bool) {
	act, ok := f.Actions[stepId]
	return act, ok
}

// Entry returns the id of the step execution starts from.
func (f *Flow) Entry() (string, error) {
	step, ok := f.Graph.EntryStep()
	if !ok {
		return "", fmt.Errorf("flow %s has no entry step", f.Id)
	}
	return step.Id, nil
}

// Next resolves the step that follows stepId for the given event. An empty
// result means the run is over.
func (f *Flow) Next(stepId string, event string) string {
	outgoing := f.Graph.OutgoingLinks(stepId)
	if len(outgoing) == 0 {
		return ""
	}
	switch event {
	case action.EVENT_TRUE, action.EVENT_FALSE:
		if len(outgoing) == 1 {
			return outgoing[0].Target
		}
		trueTarget, falseTarget := f.Graph.BranchTargets(stepId)
		if event == action.EVENT_TRUE {
			return trueTarget
		}
		return falseTarget
	}
	return outgoing[0].Target
}
