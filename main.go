package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohitkumar/funnel/agent"
	"github.com/mohitkumar/funnel/analytics"
	"github.com/mohitkumar/funnel/channel"
	"github.com/mohitkumar/funnel/client"
	"github.com/mohitkumar/funnel/config"
	"github.com/mohitkumar/funnel/flow"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/mohitkumar/funnel/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage (redis, memory)")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().String("namespace", "funnel", "namespace used in storage")
	cmd.Flags().String("gateway", "log", "channel gateway (log, webhook, telegram, discord)")
	cmd.Flags().String("phone-number", "", "default sender phone number")
	cmd.Flags().String("webhook-url", "", "default webhook receiving outgoing messages")
	cmd.Flags().Duration("webhook-timeout", 10*time.Second, "timeout of a single webhook call")
	cmd.Flags().Duration("webhook-max-elapsed", 30*time.Second, "how long a webhook delivery is retried")
	cmd.Flags().String("telegram-token", "", "telegram bot token")
	cmd.Flags().String("discord-token", "", "discord bot token")
	cmd.Flags().String("smtp-host", "", "smtp host, emails are only logged when empty")
	cmd.Flags().Int("smtp-port", 587, "smtp port")
	cmd.Flags().String("smtp-user", "", "smtp user")
	cmd.Flags().String("smtp-password", "", "smtp password")
	cmd.Flags().String("smtp-from", "", "sender address of emails")
	cmd.Flags().String("analytics-file", "", "file receiving step analytics, disabled when empty")
	cmd.Flags().Int("executor-capacity", 512, "queued async executions")
	cmd.Flags().Duration("flow-cache-ttl", 5*time.Minute, "how long executable flows stay cached")
	cmd.Flags().Int("max-steps", 0, "steps a single run may execute, 0 keeps the default")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if len(configFile) != 0 {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return err
			}
		}
	}
	viper.SetEnvPrefix("funnel")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.StorageType = persistence.StorageType(viper.GetString("storage-impl"))
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.GatewayType = channel.GatewayType(viper.GetString("gateway"))
	c.cfg.ChannelConfig.PhoneNumber = viper.GetString("phone-number")
	c.cfg.ChannelConfig.WebhookUrl = viper.GetString("webhook-url")
	c.cfg.ChannelConfig.WebhookTimeout = viper.GetDuration("webhook-timeout")
	c.cfg.ChannelConfig.WebhookMaxElapsed = viper.GetDuration("webhook-max-elapsed")
	c.cfg.ChannelConfig.TelegramToken = viper.GetString("telegram-token")
	c.cfg.ChannelConfig.DiscordToken = viper.GetString("discord-token")
	c.cfg.SmtpConfig = channel.SmtpConfig{
		Host:     viper.GetString("smtp-host"),
		Port:     viper.GetInt("smtp-port"),
		Username: viper.GetString("smtp-user"),
		Password: viper.GetString("smtp-password"),
		From:     viper.GetString("smtp-from"),
	}
	if file := viper.GetString("analytics-file"); len(file) != 0 {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{FileName: file, CollectorType: analytics.LOG_FILE_DATA_COLLECTOR}
	}
	c.cfg.ExecutorCapacity = viper.GetInt("executor-capacity")
	c.cfg.FlowCacheTTL = viper.GetDuration("flow-cache-ttl")
	c.cfg.MaxSteps = viper.GetInt("max-steps")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return nil, err
	}
	return client.New(server, 30*time.Second), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate an exported flow file against the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			file, err := flow.DecodeImport(data, "")
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			res, err := c.Validate(cmd.Context(), file.Steps, file.Links)
			if err != nil {
				return err
			}
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.IsValid {
				return fmt.Errorf("flow %q has %d errors", file.Name, len(res.Errors))
			}
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a flow file as a new flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			imported, err := c.Import(cmd.Context(), data, flow.ToFormat(format))
			if err != nil {
				return err
			}
			return printJSON(imported)
		},
	}
	cmd.Flags().String("format", "", "json or yaml, detected when empty")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a stored flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			file, err := c.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			if flow.ToFormat(format) != flow.YAML_FORMAT {
				return printJSON(file)
			}
			data, err := util.NewYamlEncoderDecoder[model.ExportFile]().Encode(*file)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
	cmd.Flags().String("format", "json", "json or yaml")
	return cmd
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "funnel",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	cmd.PersistentFlags().String("server", "http://localhost:8080", "funnel server used by the flow commands")
	cmd.AddCommand(validateCmd(), importCmd(), exportCmd())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
