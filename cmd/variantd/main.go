package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/gobwas/variant"
	"github.com/gobwas/variant/internal/admin"
	"github.com/gobwas/variant/internal/api"
	"github.com/gobwas/variant/internal/config"
	"github.com/gobwas/variant/internal/metrics"
)

func main() {
	var (
		cfgPath string
		addr    string
	)
	flag.StringVarP(&cfgPath,
		"config", "c", os.Getenv("VARIANT_CONFIG"),
		"path to yaml config file",
	)
	flag.StringVar(&addr,
		"addr", "",
		"override server.addr from config",
	)
	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "variantd: %v\n", err)
			os.Exit(1)
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "variantd: %v\n", err)
			os.Exit(1)
		}
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "variantd: can't build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(c config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(c.Level)
	zc.Encoding = c.Encoding
	return zc.Build()
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	cache := variant.NewCache(cfg.Cache.Size)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(reg, cache)

	adm := admin.New(admin.Config{
		Addr:        cfg.Admin.Addr,
		EnablePprof: cfg.Admin.EnablePprof,
	}, reg)
	go func() {
		if err := adm.ListenAndServe(ctx); err != nil {
			log.Error("admin server failed", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.New(cfg, cache, log.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving",
		zap.String("addr", cfg.Server.Addr),
		zap.String("admin_addr", cfg.Admin.Addr),
		zap.Stringer("default_algorithm", cfg.Defaults.Algorithm),
		zap.Stringer("default_distribution", cfg.Defaults.Distribution),
		zap.Int("default_table_size", cfg.Defaults.TableSize),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("stopped")
	return nil
}
