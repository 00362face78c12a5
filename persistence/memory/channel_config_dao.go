package memory

import (
	"context"
	"sync"

	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
)

var _ persistence.ChannelConfigDao = new(memoryChannelConfigDao)

type memoryChannelConfigDao struct {
	mu  sync.RWMutex
	cfg *model.ChannelConfig
}

func NewMemoryChannelConfigDao() *memoryChannelConfigDao {
	return &memoryChannelConfigDao{}
}

func (m *memoryChannelConfigDao) SaveChannelConfig(ctx context.Context, cfg model.ChannelConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = &cfg
	return nil
}

func (m *memoryChannelConfigDao) GetChannelConfig(ctx context.Context) (*model.ChannelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return nil, nil
	}
	cfg := *m.cfg
	return &cfg, nil
}
