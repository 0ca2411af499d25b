package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/subscription"
)

var subFlags struct {
	address   string
	minAmount string
	direction string
	kafka     bool
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <ledger|block|account_transfer|contract_transfer>",
	Short: "Stream ledger events as JSON lines",
	Long: `Stream events to stdout until interrupted. With --kafka every event is
also published to the configured topic.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubscribe,
}

func init() {
	f := subscribeCmd.Flags()
	f.StringVar(&subFlags.address, "address", "", "only transfers touching this address")
	f.StringVar(&subFlags.minAmount, "min-amount", "", "only transfers of at least this amount")
	f.StringVar(&subFlags.direction, "direction", "any", "any, incoming or outgoing")
	f.BoolVar(&subFlags.kafka, "kafka", false, "also publish to Kafka")
	rootCmd.AddCommand(subscribeCmd)
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	dir, err := subscription.ParseDirection(subFlags.direction)
	if err != nil {
		return err
	}
	filter := subscription.Filter{
		Kind:         subscription.Kind(args[0]),
		WatchAddress: subFlags.address,
		MinAmount:    subFlags.minAmount,
		Direction:    dir,
	}
	if err := filter.Validate(); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sink, closeSink, err := a.eventSink(subscription.NewJSONSink(cmd.OutOrStdout()), subFlags.kafka)
	if err != nil {
		return err
	}
	defer closeSink()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sub *subscription.Subscription
	switch filter.Kind {
	case subscription.KindBlock, subscription.KindContractTransfer:
		sub, err = a.evm.Subscribe(ctx, filter, sink)
	default:
		sub, err = a.xrpl.Subscribe(ctx, filter, sink)
	}
	if err != nil {
		return err
	}
	a.logger.Info("subscribed", zap.String("id", sub.ID()), zap.String("kind", string(filter.Kind)))

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sub.Stop(stopCtx); err != nil {
			a.logger.Warn("unsubscribe failed", zap.Error(err))
		}
		return nil
	case <-sub.Done():
		if err := sub.Err(); err != nil {
			return fmt.Errorf("subscription closed: %w", err)
		}
		return nil
	}
}

// eventSink adds a Kafka sink to primary when requested. The returned func
// closes the Kafka writer.
func (a *app) eventSink(primary subscription.Sink, kafka bool) (subscription.Sink, func(), error) {
	if !kafka {
		return primary, func() {}, nil
	}
	if len(a.cfg.Kafka.Brokers) == 0 {
		return nil, nil, errors.New("kafka.brokers is not configured")
	}
	ks := subscription.NewKafkaSink(subscription.NewKafkaWriter(a.cfg.Kafka.Brokers...), a.cfg.Kafka.Topic)
	closeFn := func() {
		if err := ks.Close(); err != nil {
			a.logger.Warn("kafka writer close failed", zap.Error(err))
		}
	}
	return subscription.MultiSink{primary, ks}, closeFn, nil
}
