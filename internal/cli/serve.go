package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/server"
)

const shutdownTimeout = 10 * time.Second

var (
	serveBind  string
	servePort  int
	serveKafka bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON-RPC and WebSocket server",
	Long: `Serve every operation over JSON-RPC 2.0 at POST /. Subscription events
started through the API stream to WebSocket clients on /ws. Prometheus
metrics are at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveBind, "bind", "", "listen address (overrides server.bind)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveKafka, "kafka", false, "also publish subscription events to Kafka")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if serveBind != "" {
		a.cfg.Server.Bind = serveBind
	}
	if servePort != 0 {
		a.cfg.Server.Port = servePort
	}

	hub := server.NewHub(a.logger, a.metrics)
	sink, closeSink, err := a.eventSink(hub, serveKafka || len(a.cfg.Kafka.Brokers) > 0)
	if err != nil {
		return err
	}
	defer closeSink()

	srv := server.New(a.dispatcher(sink), hub, server.Config{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		Registry:       a.registry,
	}, a.logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := a.cfg.Server.Addr()
	a.logger.Info("starting server",
		zap.String("addr", addr),
		zap.String("tier", a.cfg.Tier),
		zap.String("xrpl_network", a.cfg.XRPL.Network),
		zap.String("evm_network", a.cfg.EVM.Network))
	return srv.ListenAndServe(ctx, addr)
}
