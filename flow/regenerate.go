package flow

import (
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/util"
)

// Regenerate gives every step and link a fresh id. Link endpoints are
// rewritten through the same old to new mapping; endpoints that do not name
// a step are kept as they are.
func Regenerate(steps []model.Step, links []model.Link, newId util.IdGenerator) ([]model.Step, []model.Link) {
	if newId == nil {
		newId = util.NewId
	}
	idMap := make(map[string]string, len(steps))
	outSteps := make([]model.Step, 0, len(steps))
	for _, step := range steps {
		id := newId()
		idMap[step.Id] = id
		step.Id = id
		outSteps = append(outSteps, step)
	}
	remap := func(id string) string {
		if mapped, ok := idMap[id]; ok {
			return mapped
		}
		return id
	}
	outLinks := make([]model.Link, 0, len(links))
	for _, link := range links {
		l := model.Link{
			Id:     newId(),
			Source: remap(link.Source),
			Target: remap(link.Target),
		}
		if link.Branch != nil {
			l.Branch = model.BoolPtr(*link.Branch)
		}
		outLinks = append(outLinks, l)
	}
	return outSteps, outLinks
}
