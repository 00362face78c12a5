package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/mohitkumar/funnel/model"
	"github.com/stretchr/testify/require"
)

type failingProvider struct{}

func (failingProvider) GetChannelConfig(ctx context.Context) (*model.ChannelConfig, error) {
	return nil, errors.New("storage down")
}

func TestConfigProviders(t *testing.T) {
	tests := map[string]func(t *testing.T){
		"empty static config": func(t *testing.T) {
			cfg, err := StaticConfigProvider{}.GetChannelConfig(context.Background())
			require.NoError(t, err)
			require.Nil(t, cfg)
		},
		"fallback picks first non empty": func(t *testing.T) {
			p := FallbackConfigProvider{
				StaticConfigProvider{},
				StaticConfigProvider{Config: model.ChannelConfig{PhoneNumber: "+100"}},
			}
			cfg, err := p.GetChannelConfig(context.Background())
			require.NoError(t, err)
			require.Equal(t, "+100", cfg.PhoneNumber)
		},
		"fallback skips failing provider": func(t *testing.T) {
			p := FallbackConfigProvider{
				failingProvider{},
				StaticConfigProvider{Config: model.ChannelConfig{WebhookUrl: "http://hook"}},
			}
			cfg, err := p.GetChannelConfig(context.Background())
			require.NoError(t, err)
			require.Equal(t, "http://hook", cfg.WebhookUrl)
		},
		"fallback reports errors when nothing configured": func(t *testing.T) {
			p := FallbackConfigProvider{failingProvider{}, StaticConfigProvider{}}
			_, err := p.GetChannelConfig(context.Background())
			require.Error(t, err)
		},
	}
	for name, fn := range tests {
		t.Run(name, fn)
	}
}

func TestLogGatewayRecordsMessages(t *testing.T) {
	g := NewLogGateway()
	ok, err := g.SendMessage(context.Background(), Message{To: "1", Message: "a"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, g.Sent(), 1)
	require.Equal(t, "a", g.Sent()[0].Message)
}
