package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Sink receives matching events. Deliver is called with the subscription
// lock held and must not block for long.
type Sink interface {
	Deliver(ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event) error

func (f SinkFunc) Deliver(ev Event) error { return f(ev) }

var ErrSinkFull = errors.New("sink buffer full")

// ChannelSink forwards events to a buffered channel without blocking and
// drops them when the buffer is full.
type ChannelSink struct {
	ch chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

func (c *ChannelSink) Events() <-chan Event { return c.ch }

func (c *ChannelSink) Deliver(ev Event) error {
	select {
	case c.ch <- ev:
		return nil
	default:
		return ErrSinkFull
	}
}

// JSONSink writes one JSON document per line.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (j *JSONSink) Deliver(ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(ev)
}

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const defaultKafkaTimeout = 5 * time.Second

// KafkaSink publishes events to a topic keyed by event id.
type KafkaSink struct {
	w       MessageWriter
	topic   string
	timeout time.Duration
}

// NewKafkaWriter returns a writer that requires acknowledgement from all
// in-sync replicas. The topic is set per message.
func NewKafkaWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
}

func NewKafkaSink(w MessageWriter, topic string) *KafkaSink {
	return &KafkaSink{w: w, topic: topic, timeout: defaultKafkaTimeout}
}

func (k *KafkaSink) Deliver(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	return k.w.WriteMessages(ctx, kafka.Message{
		Topic: k.topic,
		Key:   []byte(ev.ID),
		Value: body,
		Time:  ev.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "chain", Value: []byte(ev.Chain)},
		},
	})
}

func (k *KafkaSink) Close() error {
	return k.w.Close()
}

// MultiSink delivers to every sink and returns the first error.
type MultiSink []Sink

func (m MultiSink) Deliver(ev Event) error {
	var first error
	for _, s := range m {
		if err := s.Deliver(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
