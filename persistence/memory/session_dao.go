package memory

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	c "github.com/patrickmn/go-cache"
)

var _ persistence.SessionDao = new(memorySessionDao)

type memorySessionDao struct {
	cache *c.Cache
}

func NewMemorySessionDao() *memorySessionDao {
	return &memorySessionDao{
		cache: c.New(c.NoExpiration, 10*time.Minute),
	}
}

// sessionKey escapes both parts so a separator inside a recipient or flow
// id cannot make two sessions share a key.
func sessionKey(flowId string, recipient string) string {
	return recipientPrefix(recipient) + url.QueryEscape(flowId)
}

func recipientPrefix(recipient string) string {
	return url.QueryEscape(recipient) + "|"
}

func (m *memorySessionDao) SaveSession(ctx context.Context, session model.Session) error {
	m.cache.Set(sessionKey(session.FlowId, session.Recipient), deepcopy.Copy(session), c.NoExpiration)
	return nil
}

func (m *memorySessionDao) GetSession(ctx context.Context, flowId string, recipient string) (*model.Session, error) {
	v, found := m.cache.Get(sessionKey(flowId, recipient))
	if !found {
		return nil, fmt.Errorf("%w: flow %s recipient %s", persistence.ErrSessionNotFound, flowId, recipient)
	}
	session := deepcopy.Copy(v).(model.Session)
	return &session, nil
}

func (m *memorySessionDao) DeleteSession(ctx context.Context, flowId string, recipient string) error {
	m.cache.Delete(sessionKey(flowId, recipient))
	return nil
}

func (m *memorySessionDao) GetSessionsByRecipient(ctx context.Context, recipient string) ([]model.Session, error) {
	prefix := recipientPrefix(recipient)
	var sessions []model.Session
	for key, item := range m.cache.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		session := deepcopy.Copy(item.Object).(model.Session)
		if session.Recipient == recipient {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].FlowId < sessions[j].FlowId
	})
	return sessions, nil
}
