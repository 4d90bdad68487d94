// Command probeworker runs a single probe worker process: it claims a
// presence key in the shared store, schedules a recurring Probe for
// every active site in the registry, and keeps that schedule in sync
// with registry updates until it is asked to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sitewatch/platform/pkg/log"
	"github.com/sitewatch/platform/pkg/metrics"
	"github.com/sitewatch/platform/pkg/probe"
	"github.com/sitewatch/platform/pkg/sharedstore"
	"github.com/sitewatch/platform/pkg/worker"
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
	Use:     "probeworker",
	Short:   "Run a distributed site-monitoring probe worker",
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
	startCmd.Flags().String("region", getenv("WORKER_REGION", "unknown"), "Region this worker is deployed in")
	startCmd.Flags().String("worker-id", getenv("WORKER_ID", ""), "Stable worker id (defaults to region-<uuid>)")
	startCmd.Flags().Duration("probe-timeout", getenvSeconds("PROBE_TIMEOUT_SECONDS", probe.DefaultTimeout), "Per-check timeout for DNS/TCP/Ping/HTTP")
	startCmd.Flags().String("probe-ports", getenv("PROBE_TCP_PORTS", ""), "Comma-separated TCP ports to probe (default 80,443)")
	startCmd.Flags().String("health-addr", getenv("METRICS_ADDR", ":9100"), "Address for /health, /ready, /metrics")
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
	metrics.SetVersion(Version)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the probe worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		redisAddr, _ := cmd.Flags().GetString("redis-addr")
		redisPassword, _ := cmd.Flags().GetString("redis-password")
		redisDB, _ := cmd.Flags().GetInt("redis-db")
		region, _ := cmd.Flags().GetString("region")
		workerID, _ := cmd.Flags().GetString("worker-id")
		timeout, _ := cmd.Flags().GetDuration("probe-timeout")
		portsFlag, _ := cmd.Flags().GetString("probe-ports")
		healthAddr, _ := cmd.Flags().GetString("health-addr")

		if workerID == "" {
			workerID = fmt.Sprintf("%s-%s", region, uuid.New().String())
		}

		store, err := sharedstore.NewRedisStore(sharedstore.Config{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to shared store: %w", err)
		}
		metrics.RegisterComponent("sharedstore", true, "")

		prober := probe.New(timeout, parsePorts(portsFlag))
		w := worker.New(worker.Config{WorkerID: workerID, Region: region}, store, prober)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := w.Start(ctx); err != nil {
			metrics.RegisterComponent("sharedstore", false, err.Error())
			return fmt.Errorf("failed to start worker: %w", err)
		}

		go serveHealth(healthAddr)

		log.Logger.Info().Str("worker_id", workerID).Str("region", region).Msg("probe worker running")

		<-ctx.Done()
		log.Logger.Info().Msg("shutdown signal received, draining")
		w.Stop()
		return nil
	},
}

func serveHealth(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Logger.Error().Err(err).Msg("health server stopped")
	}
}

func parsePorts(raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var ports []int
	for _, p := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		ports = append(ports, n)
	}
	return ports
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

// getenvSeconds reads an integer-seconds environment variable (the wire
// contract names PROBE_TIMEOUT_SECONDS, not a Go duration string).
func getenvSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(n) * time.Second
}
