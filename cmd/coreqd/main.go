package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/veccore/coreq/internal/config"
	"github.com/veccore/coreq/internal/engine"
	"github.com/veccore/coreq/internal/simd"
)

func main() {
	metricsAddr := flag.String("metrics", "", "override COREQ_METRICS_ADDR")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := config.Validate(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)
	defer logger.Sync()

	simd.Init()
	cpu := simd.GetCPUFeatures()
	logger.Info("simd dispatch tier selected",
		zap.String("tier", simd.GetImplementation()),
		zap.String("cpu_vendor", cpu.Vendor),
		zap.Bool("avx512", cpu.HasAVX512),
		zap.Bool("avx2", cpu.HasAVX2),
		zap.Bool("sse42", cpu.HasSSE42),
		zap.Bool("neon", cpu.HasNEON),
	)

	eng, warnings, err := engine.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to construct engine", zap.Error(err))
	}
	for _, w := range warnings {
		logger.Warn("config warning", zap.String("detail", w))
	}

	go func() {
		logger.Info("starting metrics server", zap.String("address", cfg.MetricsAddr))
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			logger.Error("metrics server exited", zap.Error(err))
		}
	}()

	eng.Start()
	defer eng.Stop()

	logger.Info("coreqd ready", zap.String("scheduler_mode", cfg.SchedulerMode))
	select {}
}

func buildLogger(cfg config.Config) *zap.Logger {
	var level zapcore.Level
	if err := level.Set(cfg.LogLevel); err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
