package agent

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mohitkumar/funnel/analytics"
	"github.com/mohitkumar/funnel/cache"
	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/config"
	"github.com/mohitkumar/funnel/engine"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/metadata"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/mohitkumar/funnel/persistence/memory"
	"github.com/mohitkumar/funnel/persistence/redis"
	"github.com/mohitkumar/funnel/rest"
	"github.com/mohitkumar/funnel/service"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// startable is implemented by gateways that also listen for replies.
type startable interface {
	Start() error
	Stop() error
}

type Agent struct {
	Config           config.Config
	flowDao          persistence.FlowDao
	sessionDao       persistence.SessionDao
	channelConfigDao persistence.ChannelConfigDao
	flowCache        *cache.FlowCache
	flowService      *metadata.FlowService
	collector        analytics.StepDataCollector
	events           *analytics.Broadcaster
	gateway          channel.Gateway
	mailer           channel.Mailer
	engine           *engine.Engine
	executionService *service.ExecutionService
	httpServer       *rest.Server
	shutdown         bool
	shutdownLock     sync.Mutex
	wg               sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupLogger,
		a.setupStorage,
		a.setupFlowService,
		a.setupAnalytics,
		a.setupGateway,
		a.setupMailer,
		a.setupEngine,
		a.setupExecutionService,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupLogger() error {
	if len(a.Config.LogLevel) == 0 {
		return nil
	}
	return logger.SetLevel(a.Config.LogLevel)
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case persistence.REDIS_STORAGE:
		flowDao := redis.NewRedisFlowDao(a.Config.RedisConfig)
		if err := flowDao.Ping(context.Background()); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		a.flowDao = flowDao
		a.sessionDao = redis.NewRedisSessionDao(a.Config.RedisConfig)
		a.channelConfigDao = redis.NewRedisChannelConfigDao(a.Config.RedisConfig)
	case persistence.MEMORY_STORAGE:
		a.flowDao = memory.NewMemoryFlowDao()
		a.sessionDao = memory.NewMemorySessionDao()
		a.channelConfigDao = memory.NewMemoryChannelConfigDao()
	default:
		return fmt.Errorf("unknown storage type %q", a.Config.StorageType)
	}
	logger.Info("storage ready", zap.String("type", string(a.Config.StorageType)))
	return nil
}

func (a *Agent) setupFlowService() error {
	a.flowCache = cache.NewFlowCache(a.flowDao, a.Config.FlowCacheTTL)
	a.flowService = metadata.NewFlowService(a.flowDao, a.flowCache)
	return nil
}

func (a *Agent) setupAnalytics() error {
	collector, err := analytics.NewDataCollector(a.Config.AnalyticsConfig)
	if err != nil {
		return err
	}
	a.events = analytics.NewBroadcaster()
	a.collector = analytics.MultiCollector{collector, a.events}
	return nil
}

// onInbound hands replies from listening gateways to the execution service,
// which is built after the gateway.
func (a *Agent) onInbound(ctx context.Context, recipient string, text string) {
	a.executionService.OnInbound(ctx, recipient, text)
}

func (a *Agent) setupGateway() error {
	var err error
	conf := a.Config.ChannelConfig
	switch a.Config.GatewayType {
	case channel.WEBHOOK_GATEWAY:
		a.gateway = channel.NewWebhookGateway(channel.WebhookConfig{
			Url:            conf.WebhookUrl,
			Timeout:        conf.WebhookTimeout,
			MaxElapsedTime: conf.WebhookMaxElapsed,
		})
	case channel.TELEGRAM_GATEWAY:
		a.gateway, err = channel.NewTelegramGateway(conf.TelegramToken, a.onInbound)
	case channel.DISCORD_GATEWAY:
		a.gateway, err = channel.NewDiscordGateway(conf.DiscordToken, a.onInbound)
	case channel.LOG_GATEWAY, "":
		a.gateway = channel.NewLogGateway()
	default:
		return fmt.Errorf("unknown channel gateway %q", a.Config.GatewayType)
	}
	if err != nil {
		return err
	}
	logger.Info("channel gateway ready", zap.String("type", string(a.Config.GatewayType)))
	return nil
}

func (a *Agent) setupMailer() error {
	if len(a.Config.SmtpConfig.Host) == 0 {
		a.mailer = channel.NewLogMailer()
		return nil
	}
	a.mailer = channel.NewSmtpMailer(a.Config.SmtpConfig)
	return nil
}

func (a *Agent) setupEngine() error {
	configs := channel.FallbackConfigProvider{
		a.channelConfigDao,
		channel.StaticConfigProvider{Config: model.ChannelConfig{
			PhoneNumber: a.Config.ChannelConfig.PhoneNumber,
			WebhookUrl:  a.Config.ChannelConfig.WebhookUrl,
		}},
	}
	opts := []engine.Option{
		engine.WithMailer(a.mailer),
		engine.WithCollector(a.collector),
	}
	if a.Config.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(a.Config.MaxSteps))
	}
	a.engine = engine.New(a.gateway, configs, opts...)
	return nil
}

func (a *Agent) setupExecutionService() error {
	a.executionService = service.NewExecutionService(a.flowService, a.sessionDao, a.engine, a.Config.ExecutorCapacity, &a.wg)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.flowService, a.executionService, a.channelConfigDao, a.events)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	a.executionService.Start()
	if g, ok := a.gateway.(startable); ok {
		if err := g.Start(); err != nil {
			return err
		}
	}
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			if g, ok := a.gateway.(startable); ok {
				return g.Stop()
			}
			return nil
		},
		func() error {
			a.executionService.Stop()
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	a.flowCache.Flush()
	return a.close()
}

// close releases storage connections and flushes the analytics file.
func (a *Agent) close() error {
	var closers []io.Closer
	for _, c := range []any{a.flowDao, a.sessionDao, a.channelConfigDao} {
		if closer, ok := c.(io.Closer); ok {
			closers = append(closers, closer)
		}
	}
	if multi, ok := a.collector.(analytics.MultiCollector); ok {
		for _, c := range multi {
			if closer, ok := c.(io.Closer); ok {
				closers = append(closers, closer)
			}
		}
	}
	var err error
	for _, c := range closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
