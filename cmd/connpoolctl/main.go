package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nebulapool/connpool/internal/factory"
	"github.com/nebulapool/connpool/internal/pool"
	"github.com/nebulapool/connpool/internal/poolmetrics"
	"github.com/nebulapool/connpool/pkg/config"
	"github.com/nebulapool/connpool/pkg/logger"
	"github.com/nebulapool/connpool/pkg/observability"
)

var version = "0.1.0"

func main() {
	_ = godotenv.Load() // ignore error if .env doesn't exist

	root := &cobra.Command{
		Use:   "connpoolctl",
		Short: "connpoolctl - operate a partitioned database connection pool",
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("connpoolctl v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var configFile string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and sanitize a config file without starting the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(cfg, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&configFile, "config", "c", "connpool.yaml", "Path to config file")
	root.AddCommand(validateCmd)

	var listenAddr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the pool and serve /metrics and /debug/pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile, listenAddr)
		},
	}
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "connpool.yaml", "Path to config file")
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":9090", "Address to serve /metrics and /debug/pool on")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Sanitize(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func buildFactory(cfg *config.Config) (factory.ConnectionFactory, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return factory.NewPostgres(cfg.Database.DSN), nil
	case "mysql":
		return factory.NewMySQL(cfg.Database.DSN), nil
	case "memory", "":
		return factory.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unrecognized database driver: %s", cfg.Database.Driver)
	}
}

func runServe(configFile, listenAddr string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	log := logger.Get().With(zap.String("component", "connpoolctl"))

	f, err := buildFactory(cfg)
	if err != nil {
		return err
	}

	var opts []pool.Option
	opts = append(opts, pool.WithLogger(log))
	if cfg.Observability.EnableMetrics {
		opts = append(opts, pool.WithMetrics(poolmetrics.NewCollector("connpoolctl")))
	}
	if cfg.Observability.EnableTracing {
		shutdown, err := observability.Init("connpoolctl")
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
		opts = append(opts, pool.WithTracing(true))
	}

	p, err := pool.New(cfg, f, opts...)
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	defer p.Shutdown()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pool", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.Stats())
	})

	server := &http.Server{Addr: listenAddr, Handler: mux}
	go sampleHostPeriodically(cfg)

	go func() {
		log.Info("serving metrics and debug endpoints", zap.String("addr", listenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func sampleHostPeriodically(cfg *config.Config) {
	if !cfg.Observability.EnableMetrics {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		_ = poolmetrics.SampleHost()
	}
}
