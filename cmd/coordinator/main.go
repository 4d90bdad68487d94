// Command coordinator runs the central monitor: it owns the site
// registry, drives the one-minute consensus tick per active site,
// persists worker and consensus status rows, and dispatches
// notifications on consensus state transitions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitewatch/platform/pkg/api"
	"github.com/sitewatch/platform/pkg/consensus"
	"github.com/sitewatch/platform/pkg/coordinator"
	"github.com/sitewatch/platform/pkg/durastore"
	"github.com/sitewatch/platform/pkg/events"
	"github.com/sitewatch/platform/pkg/log"
	"github.com/sitewatch/platform/pkg/metrics"
	"github.com/sitewatch/platform/pkg/notify"
	"github.com/sitewatch/platform/pkg/sharedstore"
	"github.com/sitewatch/platform/pkg/types"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "coordinator",
	Short:   "Run the site-monitoring coordinator",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", getenv("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", getenvBool("LOG_JSON", false), "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(startCmd)

	startCmd.Flags().String("redis-addr", getenv("REDIS_ADDR", "localhost:6379"), "Shared store (Redis) address")
	startCmd.Flags().String("redis-password", getenv("REDIS_PASSWORD", ""), "Shared store password")
	startCmd.Flags().Int("redis-db", 0, "Shared store database index")
	startCmd.Flags().String("database-url", getenv("DATABASE_URL", ""), "Durable store (Postgres) DSN")
	startCmd.Flags().String("api-addr", getenv("HTTP_ADDR", ":8080"), "Address for the HTTP API surface")

	startCmd.Flags().String("smtp-host", getenv("SITEWATCH_SMTP_HOST", ""), "SMTP host for the email notifier")
	startCmd.Flags().Int("smtp-port", getenvInt("SITEWATCH_SMTP_PORT", 587), "SMTP port for the email notifier")
	startCmd.Flags().String("smtp-username", getenv("SITEWATCH_SMTP_USERNAME", ""), "SMTP username")
	startCmd.Flags().String("smtp-password", getenv("SITEWATCH_SMTP_PASSWORD", ""), "SMTP password")
	startCmd.Flags().String("smtp-from", getenv("SITEWATCH_SMTP_FROM", "alerts@sitewatch.local"), "From address for email alerts")
	startCmd.Flags().String("slack-bot-token", getenv("SITEWATCH_SLACK_BOT_TOKEN", ""), "Bot token for the chat-a Slack notifier")
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
	metrics.SetVersion(Version)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the coordinator",
	RunE: func(cmd *cobra.Command, args []string) error {
		redisAddr, _ := cmd.Flags().GetString("redis-addr")
		redisPassword, _ := cmd.Flags().GetString("redis-password")
		redisDB, _ := cmd.Flags().GetInt("redis-db")
		databaseURL, _ := cmd.Flags().GetString("database-url")
		apiAddr, _ := cmd.Flags().GetString("api-addr")

		smtpHost, _ := cmd.Flags().GetString("smtp-host")
		smtpPort, _ := cmd.Flags().GetInt("smtp-port")
		smtpUsername, _ := cmd.Flags().GetString("smtp-username")
		smtpPassword, _ := cmd.Flags().GetString("smtp-password")
		smtpFrom, _ := cmd.Flags().GetString("smtp-from")
		slackBotToken, _ := cmd.Flags().GetString("slack-bot-token")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shared, err := sharedstore.NewRedisStore(sharedstore.Config{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to shared store: %w", err)
		}
		metrics.RegisterComponent("sharedstore", true, "")

		durable, err := durastore.Open(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to durable store: %w", err)
		}
		metrics.RegisterComponent("durastore", true, "")

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		notifiers := map[types.NotifyChannel]notify.Notifier{
			types.NotifyChannelPush: notify.NewPushNotifier(broker),
			types.NotifyChannelChatB: notify.NewWebhookNotifier(),
			types.NotifyChannelChatC: notify.NewWebhookNotifier(),
		}
		if smtpHost != "" {
			notifiers[types.NotifyChannelEmail] = notify.NewEmailNotifier(smtpHost, smtpPort, smtpUsername, smtpPassword, smtpFrom)
		}
		if slackBotToken != "" {
			notifiers[types.NotifyChannelChatA] = notify.NewSlackNotifier(slackBotToken)
		}
		dispatcher := notify.NewDispatcher(durable, notifiers)

		engine := consensus.New()
		scheduler := coordinator.NewScheduler(shared, durable, engine, dispatcher)
		registrySync := coordinator.NewRegistrySync(durable, shared, scheduler)

		if err := registrySync.Start(ctx); err != nil {
			metrics.RegisterComponent("durastore", false, err.Error())
			return fmt.Errorf("registry sync failed, aborting startup: %w", err)
		}

		collector := metrics.NewCollector(shared, durable)
		collector.Start()
		defer collector.Stop()

		server := api.NewServer(registrySync, durable, shared)
		metrics.RegisterComponent("api", true, "")
		go func() {
			if err := server.ListenAndServe(apiAddr); err != nil {
				log.Logger.Error().Err(err).Msg("api server stopped")
			}
		}()

		log.Logger.Info().Str("api_addr", apiAddr).Msg("coordinator running")

		<-ctx.Done()
		log.Logger.Info().Msg("shutdown signal received, draining")
		scheduler.Stop()
		_ = durable.Close()
		_ = shared.Close()
		return nil
	},
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
