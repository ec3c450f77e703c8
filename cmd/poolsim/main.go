// Command poolsim replays scripted mint, burn, collect and swap operations
// against an in-memory concentrated-liquidity pool and writes per-step
// results as JSONL.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/defisim/clpool-go/internal/config"
	"github.com/defisim/clpool-go/internal/scenario"
	"github.com/defisim/clpool-go/pool/tickmath"
)

func main() {
	root := &cobra.Command{
		Use:          "poolsim",
		Short:        "Concentrated-liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario file",
		RunE:  runScenario,
	}
	runCmd.Flags().String("in", "", "scenario JSON path")
	runCmd.Flags().String("out", "./data/results.jsonl", "output JSONL path")
	runCmd.Flags().String("metrics-addr", "", "Prometheus listen address (empty disables)")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(runCmd)

	priceCmd := &cobra.Command{
		Use:   "price <tick>",
		Short: "Print the Q64.96 sqrt price at a tick",
		Args:  cobra.ExactArgs(1),
		RunE:  runPrice,
	}
	root.AddCommand(priceCmd)

	tickCmd := &cobra.Command{
		Use:   "tick <sqrtPriceX96>",
		Short: "Print the tick at a Q64.96 sqrt price",
		Args:  cobra.ExactArgs(1),
		RunE:  runTick,
	}
	root.AddCommand(tickCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("scenario path is required")
	}
	scn, err := scenario.Load(cfg.In)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	runner := scenario.NewRunner(logger, scenario.NewJsonlSink(cfg.Out), registry)

	logger.Info("poolsim start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
	)
	return runner.Run(ctx, scn)
}

func runPrice(cmd *cobra.Command, args []string) error {
	tick, ok := new(big.Int).SetString(args[0], 10)
	if !ok || !tick.IsInt64() {
		return fmt.Errorf("invalid tick %q", args[0])
	}

	price := new(big.Int)
	if err := tickmath.SqrtRatioAtTick(price, tick.Int64()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), price.String())
	return nil
}

func runTick(cmd *cobra.Command, args []string) error {
	price, ok := new(big.Int).SetString(args[0], 10)
	if !ok {
		return fmt.Errorf("invalid sqrt price %q", args[0])
	}

	tick, err := tickmath.TickAtSqrtRatio(price)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tick)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
