package model

import "time"

type Link struct {
	Id     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Branch *bool  `json:"branch,omitempty"`
}

type Flow struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Steps     []Step    `json:"nodes"`
	Links     []Link    `json:"edges"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f *Flow) Step(id string) (*Step, bool) {
	for i := range f.Steps {
		if f.Steps[i].Id == id {
			return &f.Steps[i], true
		}
	}
	return nil, false
}

// OutgoingLinks returns the links leaving stepId in declaration order.
func (f *Flow) OutgoingLinks(stepId string) []Link {
	return OutgoingLinks(f.Links, stepId)
}

func (f *Flow) IncomingLinks(stepId string) []Link {
	return IncomingLinks(f.Links, stepId)
}

func OutgoingLinks(links []Link, stepId string) []Link {
	var out []Link
	for _, l := range links {
		if l.Source == stepId {
			out = append(out, l)
		}
	}
	return out
}

func IncomingLinks(links []Link, stepId string) []Link {
	var in []Link
	for _, l := range links {
		if l.Target == stepId {
			in = append(in, l)
		}
	}
	return in
}

// BranchTargets resolves the true and false continuation of a step. Links
// tagged with a branch go to that branch, untagged links fill the remaining
// slots in declaration order, true first.
func (f *Flow) BranchTargets(stepId string) (string, string) {
	var trueTarget, falseTarget string
	var untagged []Link
	for _, l := range f.OutgoingLinks(stepId) {
		switch {
		case l.Branch == nil:
			untagged = append(untagged, l)
		case *l.Branch && len(trueTarget) == 0:
			trueTarget = l.Target
		case !*l.Branch && len(falseTarget) == 0:
			falseTarget = l.Target
		}
	}
	for _, l := range untagged {
		if len(trueTarget) == 0 {
			trueTarget = l.Target
		} else if len(falseTarget) == 0 {
			falseTarget = l.Target
		}
	}
	return trueTarget, falseTarget
}

// EntryStep is the first declared step without incoming links.
func (f *Flow) EntryStep() (*Step, bool) {
	targets := make(map[string]bool, len(f.Links))
	for _, l := range f.Links {
		targets[l.Target] = true
	}
	for i := range f.Steps {
		if !targets[f.Steps[i].Id] {
			return &f.Steps[i], true
		}
	}
	return nil, false
}

func BoolPtr(b bool) *bool {
	return &b
}
