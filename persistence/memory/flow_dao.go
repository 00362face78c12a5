// Package memory keeps flows, sessions and channel settings in process. It is
// meant for development and tests; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	c "github.com/patrickmn/go-cache"
)

var _ persistence.FlowDao = new(memoryFlowDao)

type memoryFlowDao struct {
	cache *c.Cache
}

func NewMemoryFlowDao() *memoryFlowDao {
	return &memoryFlowDao{
		cache: c.New(c.NoExpiration, 10*time.Minute),
	}
}

func (m *memoryFlowDao) Create(ctx context.Context, fl model.Flow) (*model.Flow, error) {
	if err := m.cache.Add(fl.Id, clone(fl), c.NoExpiration); err != nil {
		return nil, persistence.ErrFlowExists
	}
	return &fl, nil
}

func (m *memoryFlowDao) Get(ctx context.Context, id string) (*model.Flow, error) {
	v, found := m.cache.Get(id)
	if !found {
		return nil, persistence.FlowNotFound(id)
	}
	fl := clone(v.(model.Flow))
	return &fl, nil
}

func (m *memoryFlowDao) Update(ctx context.Context, id string, fl model.Flow) (*model.Flow, error) {
	fl.Id = id
	if err := m.cache.Replace(id, clone(fl), c.NoExpiration); err != nil {
		return nil, persistence.FlowNotFound(id)
	}
	return &fl, nil
}

func (m *memoryFlowDao) Delete(ctx context.Context, id string) error {
	if _, found := m.cache.Get(id); !found {
		return persistence.FlowNotFound(id)
	}
	m.cache.Delete(id)
	return nil
}

func (m *memoryFlowDao) List(ctx context.Context) ([]model.Flow, error) {
	items := m.cache.Items()
	flows := make([]model.Flow, 0, len(items))
	for _, item := range items {
		flows = append(flows, clone(item.Object.(model.Flow)))
	}
	sort.SliceStable(flows, func(i, j int) bool {
		if flows[i].UpdatedAt.Equal(flows[j].UpdatedAt) {
			return flows[i].Id < flows[j].Id
		}
		return flows[i].UpdatedAt.After(flows[j].UpdatedAt)
	})
	return flows, nil
}

// clone copies the step and link slices so callers can not reach stored
// state. Properties are values and need no copy.
func clone(fl model.Flow) model.Flow {
	out := fl
	out.Steps = append([]model.Step(nil), fl.Steps...)
	out.Links = make([]model.Link, len(fl.Links))
	for i, l := range fl.Links {
		out.Links[i] = l
		if l.Branch != nil {
			out.Links[i].Branch = model.BoolPtr(*l.Branch)
		}
	}
	return out
}
