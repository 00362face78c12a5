package agent

import (
	"context"
	"testing"
	"time"

	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/config"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	return config.Config{
		HttpPort:         0,
		StorageType:      persistence.MEMORY_STORAGE,
		GatewayType:      channel.LOG_GATEWAY,
		ChannelConfig:    config.ChannelConfig{PhoneNumber: "+1"},
		ExecutorCapacity: 8,
		FlowCacheTTL:     time.Minute,
	}
}

func TestAgentRunsFlows(t *testing.T) {
	a, err := New(memoryConfig())
	require.NoError(t, err)
	require.NoError(t, a.Start())

	ctx := context.Background()
	created, err := a.flowService.Create(ctx, model.Flow{
		Name: "welcome",
		Steps: []model.Step{
			{Id: "s", Kind: model.START_STEP, Label: "Flow start", Properties: model.StartProperties{}},
			{Id: "m", Kind: model.SEND_MESSAGE_STEP, Label: "hi", Properties: model.MessageProperties{Message: "hi"}},
		},
		Links: []model.Link{{Id: "l", Source: "s", Target: "m"}},
	})
	require.NoError(t, err)

	res, err := a.executionService.Trigger(ctx, created.Id, "555", nil)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, res.Status)
	require.Len(t, a.gateway.(*channel.LogGateway).Sent(), 1)

	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Shutdown())
}

func TestAgentRejectsUnknownSettings(t *testing.T) {
	scenarios := map[string]func(*config.Config){
		"storage": func(c *config.Config) { c.StorageType = "cassandra" },
		"gateway": func(c *config.Config) { c.GatewayType = "pigeon" },
	}
	for name, mutate := range scenarios {
		t.Run(name, func(t *testing.T) {
			conf := memoryConfig()
			mutate(&conf)
			_, err := New(conf)
			require.Error(t, err)
		})
	}
}
