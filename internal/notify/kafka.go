package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"token-board/internal/domain"
	"token-board/internal/observability"
)

// messageWriter is the subset of *kafka.Writer used by KafkaObserver.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka observer.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// QueueSize bounds pending updates. Updates beyond it are dropped.
	QueueSize int
	// WriteTimeout bounds a single write to the brokers.
	WriteTimeout time.Duration
}

// KafkaObserver forwards vote updates to a Kafka topic keyed by symbol,
// so updates of one token land on the same partition in order.
type KafkaObserver struct {
	writer       messageWriter
	writeTimeout time.Duration
	logger       *log.Logger

	queue chan domain.VoteUpdate
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewKafkaObserver creates an observer writing to cfg.Topic and starts its sender.
func NewKafkaObserver(cfg KafkaConfig, logger *log.Logger) (*KafkaObserver, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: empty topic")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  5,
		Compression:  kafka.Snappy,
	}
	return newKafkaObserver(w, cfg, logger), nil
}

func newKafkaObserver(w messageWriter, cfg KafkaConfig, logger *log.Logger) *KafkaObserver {
	if logger == nil {
		logger = log.New(os.Stdout, "[kafka] ", log.LstdFlags|log.Lshortfile)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	k := &KafkaObserver{
		writer:       w,
		writeTimeout: cfg.WriteTimeout,
		logger:       logger,
		queue:        make(chan domain.VoteUpdate, cfg.QueueSize),
		done:         make(chan struct{}),
	}
	k.wg.Add(1)
	go k.run()
	return k
}

// Notify enqueues update without blocking.
func (k *KafkaObserver) Notify(update domain.VoteUpdate) {
	select {
	case <-k.done:
		return
	default:
	}

	select {
	case k.queue <- update:
	default:
		observability.RecordBroadcastDropped("kafka")
		k.logger.Printf("queue full, dropping update for %s", update.Symbol)
	}
}

// Close drains queued updates, then closes the writer.
func (k *KafkaObserver) Close() error {
	k.once.Do(func() { close(k.done) })
	k.wg.Wait()

	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

func (k *KafkaObserver) run() {
	defer k.wg.Done()

	for {
		select {
		case u := <-k.queue:
			k.send(u)
		case <-k.done:
			for {
				select {
				case u := <-k.queue:
					k.send(u)
				default:
					return
				}
			}
		}
	}
}

func (k *KafkaObserver) send(u domain.VoteUpdate) {
	value, err := json.Marshal(u)
	if err != nil {
		k.logger.Printf("marshal update: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(u.Symbol),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(domain.VoteUpdateEvent)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		observability.RecordBroadcastDropped("kafka")
		k.logger.Printf("write update for %s: %v", u.Symbol, err)
	}
}

var _ Observer = (*KafkaObserver)(nil)
