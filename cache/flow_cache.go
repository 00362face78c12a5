package cache

import (
	"context"
	"time"

	"github.com/mohitkumar/funnel/flow"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	c "github.com/patrickmn/go-cache"
)

// Entry is a stored flow ready to run, with its validation result.
type Entry struct {
	Flow       *flow.Flow
	Validation model.ValidationResult
}

// FlowCache is a read through cache of executable flows. Writers must call
// Invalidate after changing a flow.
type FlowCache struct {
	dao   persistence.FlowDao
	cache *c.Cache
}

func NewFlowCache(dao persistence.FlowDao, ttl time.Duration) *FlowCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &FlowCache{
		dao:   dao,
		cache: c.New(ttl, 2*ttl),
	}
}

func (ch *FlowCache) Get(ctx context.Context, id string) (*Entry, error) {
	if v, found := ch.cache.Get(id); found {
		return v.(*Entry), nil
	}
	stored, err := ch.dao.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fl, err := flow.Convert(stored)
	if err != nil {
		return nil, err
	}
	entry := &Entry{
		Flow:       fl,
		Validation: flow.ValidateFlow(stored),
	}
	ch.cache.SetDefault(id, entry)
	return entry, nil
}

func (ch *FlowCache) Invalidate(id string) {
	ch.cache.Delete(id)
}

func (ch *FlowCache) Flush() {
	ch.cache.Flush()
}
