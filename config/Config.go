package config

import (
	"time"

	"github.com/mohitkumar/funnel/analytics"
	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/mohitkumar/funnel/persistence/redis"
)

type Config struct {
	HttpPort         int
	LogLevel         string
	StorageType      persistence.StorageType
	RedisConfig      redis.Config
	GatewayType      channel.GatewayType
	ChannelConfig    ChannelConfig
	SmtpConfig       channel.SmtpConfig
	AnalyticsConfig  analytics.DataCollectorConfig
	ExecutorCapacity int
	FlowCacheTTL     time.Duration
	MaxSteps         int
}

// ChannelConfig holds the transport credentials. The sender phone number and
// webhook given here are used when none was saved through the API.
type ChannelConfig struct {
	PhoneNumber       string
	WebhookUrl        string
	WebhookTimeout    time.Duration
	WebhookMaxElapsed time.Duration
	TelegramToken     string
	DiscordToken      string
}
