package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/compliance"
	"github.com/LeJamon/goRLUSD/internal/config"
	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/evm"
	"github.com/LeJamon/goRLUSD/internal/logging"
	"github.com/LeJamon/goRLUSD/internal/metrics"
	"github.com/LeJamon/goRLUSD/internal/operation"
	"github.com/LeJamon/goRLUSD/internal/registry"
	"github.com/LeJamon/goRLUSD/internal/subscription"
	"github.com/LeJamon/goRLUSD/internal/xrpl"
)

// app holds what one command invocation needs. Clients connect lazily, so
// building an app never touches the network.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	xrpl     *xrpl.Client
	evm      *evm.Client
}

func newApp() (_ *app, err error) {
	if err := config.LoadEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := applyNetworkFlag(cfg, network); err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{Level: level, File: cfg.Log.File, Console: cfg.Log.Development})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	a := &app{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		registry: reg,
		metrics:  metrics.New(reg),
	}
	defer func() {
		if err != nil {
			_ = closeLog()
		}
	}()

	a.xrpl, err = xrpl.New(xrpl.Config{
		Network:      cfg.XRPL.Network,
		Endpoint:     cfg.XRPL.Endpoint,
		Issuer:       cfg.XRPL.Issuer,
		MaxFee:       amount.XRPAmount(cfg.XRPL.MaxFeeDrops),
		LedgerOffset: cfg.XRPL.LedgerOffset,
		PollInterval: cfg.XRPL.PollInterval,
		CacheSize:    cfg.XRPL.CacheSize,
	}, xrpl.WithLogger(logger), xrpl.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("xrpl client: %w", err)
	}
	if cfg.XRPL.Seed != "" {
		if err := a.xrpl.LoadWallet(cfg.XRPL.Seed); err != nil {
			return nil, err
		}
	}

	a.evm, err = evm.New(evm.Config{
		Network:      cfg.EVM.Network,
		Endpoint:     cfg.EVM.Endpoint,
		Contract:     cfg.EVM.Contract,
		Decimals:     cfg.EVM.Decimals,
		PollInterval: cfg.EVM.PollInterval,
		CacheSize:    cfg.EVM.CacheSize,
	}, evm.WithLogger(logger), evm.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("evm client: %w", err)
	}
	if cfg.EVM.PrivateKey != "" {
		if err := a.evm.LoadKey(cfg.EVM.PrivateKey); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// applyNetworkFlag points the client of the network's family at it.
func applyNetworkFlag(cfg *config.Config, name string) error {
	if name == "" {
		return nil
	}
	e, err := registry.Lookup(name)
	if err != nil {
		return err
	}
	switch e.Family {
	case registry.FamilyXRPL:
		cfg.XRPL.Network, cfg.XRPL.Endpoint, cfg.XRPL.Issuer = e.Network, "", ""
	case registry.FamilyEVM:
		cfg.EVM.Network, cfg.EVM.Endpoint, cfg.EVM.Contract, cfg.EVM.Decimals = e.Network, "", "", 0
	}
	return nil
}

// close disconnects both clients. It runs on every exit path of a command
// that built the app.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := errors.Join(a.xrpl.Disconnect(ctx), a.evm.Disconnect(ctx)); err != nil {
		a.logger.Warn("disconnect failed", zap.Error(err))
	}
	if err := a.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "close log: %v\n", err)
	}
}

func (a *app) dispatcher(sink subscription.Sink) *operation.Dispatcher {
	comp := compliance.New(a.cfg.Compliance.URL,
		compliance.WithHTTPClient(&http.Client{Timeout: a.cfg.Compliance.Timeout}),
		compliance.WithLogger(a.logger))
	return operation.New(operation.Services{
		XRPL:       a.xrpl,
		EVM:        a.evm,
		Compliance: comp,
		Sink:       sink,
	}, operation.WithLogger(a.logger), operation.WithMetrics(a.metrics))
}

// run executes one request and prints its result.
func run(cmd *cobra.Command, req operation.Request) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.dispatcher(nil).Do(cmd.Context(), req)
	if err != nil {
		var oe *operation.OutcomeError
		if errors.As(err, &oe) {
			_ = printResult(cmd.OutOrStdout(), operation.ErrorResult(err))
		}
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}
