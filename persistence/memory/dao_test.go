package memory

import (
	"context"
	"testing"
	"time"

	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/stretchr/testify/require"
)

func TestMemoryFlowDao(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, dao *memoryFlowDao){
		"create and get":          testCreateGet,
		"update missing":          testUpdateMissing,
		"list newest first":       testListOrder,
		"stored flow is isolated": testIsolation,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, NewMemoryFlowDao())
		})
	}
}

func testCreateGet(t *testing.T, dao *memoryFlowDao) {
	ctx := context.Background()
	_, err := dao.Create(ctx, model.Flow{Id: "a", Name: "A"})
	require.NoError(t, err)
	_, err = dao.Create(ctx, model.Flow{Id: "a", Name: "A"})
	require.ErrorIs(t, err, persistence.ErrFlowExists)

	got, err := dao.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "A", got.Name)

	require.NoError(t, dao.Delete(ctx, "a"))
	require.ErrorIs(t, dao.Delete(ctx, "a"), persistence.ErrFlowNotFound)
	_, err = dao.Get(ctx, "a")
	require.ErrorIs(t, err, persistence.ErrFlowNotFound)
}

func testUpdateMissing(t *testing.T, dao *memoryFlowDao) {
	_, err := dao.Update(context.Background(), "nope", model.Flow{Name: "x"})
	require.ErrorIs(t, err, persistence.ErrFlowNotFound)
}

func testListOrder(t *testing.T, dao *memoryFlowDao) {
	ctx := context.Background()
	now := time.Now()
	_, _ = dao.Create(ctx, model.Flow{Id: "old", UpdatedAt: now.Add(-time.Hour)})
	_, _ = dao.Create(ctx, model.Flow{Id: "new", UpdatedAt: now})
	flows, err := dao.List(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	require.Equal(t, "new", flows[0].Id)
	require.Equal(t, "old", flows[1].Id)
}

func testIsolation(t *testing.T, dao *memoryFlowDao) {
	ctx := context.Background()
	fl := model.Flow{Id: "a", Links: []model.Link{{Id: "l", Source: "x", Target: "y"}}}
	_, err := dao.Create(ctx, fl)
	require.NoError(t, err)
	fl.Links[0].Target = "changed"

	got, err := dao.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "y", got.Links[0].Target)
}

func TestMemorySessionDao(t *testing.T) {
	dao := NewMemorySessionDao()
	ctx := context.Background()

	session := model.Session{FlowId: "f1", Recipient: "555", CurrentStepId: "s", Context: map[string]any{"a": 1}}
	require.NoError(t, dao.SaveSession(ctx, session))
	require.NoError(t, dao.SaveSession(ctx, model.Session{FlowId: "f2", Recipient: "555"}))
	require.NoError(t, dao.SaveSession(ctx, model.Session{FlowId: "f1", Recipient: "777"}))
	session.Context["a"] = 2

	got, err := dao.GetSession(ctx, "f1", "555")
	require.NoError(t, err)
	require.Equal(t, 1, got.Context["a"])

	sessions, err := dao.GetSessionsByRecipient(ctx, "555")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "f1", sessions[0].FlowId)

	require.NoError(t, dao.DeleteSession(ctx, "f1", "555"))
	_, err = dao.GetSession(ctx, "f1", "555")
	require.ErrorIs(t, err, persistence.ErrSessionNotFound)
}

func TestMemorySessionDaoKeepsRecipientsApart(t *testing.T) {
	dao := NewMemorySessionDao()
	ctx := context.Background()

	require.NoError(t, dao.SaveSession(ctx, model.Session{FlowId: "f1", Recipient: "a", CurrentStepId: "mine"}))
	require.NoError(t, dao.SaveSession(ctx, model.Session{FlowId: "f2", Recipient: "a|b", CurrentStepId: "other"}))
	require.NoError(t, dao.SaveSession(ctx, model.Session{FlowId: "b|c", Recipient: "a", CurrentStepId: "split"}))
	require.NoError(t, dao.SaveSession(ctx, model.Session{FlowId: "c", Recipient: "a|b", CurrentStepId: "joined"}))

	sessions, err := dao.GetSessionsByRecipient(ctx, "a")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, s := range sessions {
		require.Equal(t, "a", s.Recipient)
	}

	sessions, err = dao.GetSessionsByRecipient(ctx, "a|b")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	got, err := dao.GetSession(ctx, "b|c", "a")
	require.NoError(t, err)
	require.Equal(t, "split", got.CurrentStepId)
	got, err = dao.GetSession(ctx, "c", "a|b")
	require.NoError(t, err)
	require.Equal(t, "joined", got.CurrentStepId)
}

func TestMemoryChannelConfigDao(t *testing.T) {
	dao := NewMemoryChannelConfigDao()
	cfg, err := dao.GetChannelConfig(context.Background())
	require.NoError(t, err)
	require.Nil(t, cfg)
	require.NoError(t, dao.SaveChannelConfig(context.Background(), model.ChannelConfig{PhoneNumber: "+1"}))
	cfg, err = dao.GetChannelConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, "+1", cfg.PhoneNumber)
}
