// file: internals/queue/kafka.go
package queue

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// Config Kafka buat deployment multi-instance: producer di path webhook,
// consumer group sebagai worker pool lintas proses.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func LoadKafkaConfigFromEnv(getenv func(string, ...string) string) (KafkaConfig, bool) {
	brokers := getenv("KAFKA_BROKERS")
	if brokers == "" {
		return KafkaConfig{}, false
	}
	cfg := KafkaConfig{
		Topic:   getenv("KAFKA_TOPIC", "shopify-webhook-orders"),
		GroupID: getenv("KAFKA_GROUP_ID", "shopify-webhook-workers"),
	}
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.Brokers = append(cfg.Brokers, b)
		}
	}
	return cfg, len(cfg.Brokers) > 0
}

func newSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Net.MaxOpenRequests = 1
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Metadata.Retry.Max = 5
	cfg.Metadata.Retry.Backoff = 2 * time.Second
	return cfg
}

type KafkaQueue struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	p, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig())
	if err != nil {
		return nil, err
	}
	return &KafkaQueue{producer: p, topic: cfg.Topic}, nil
}

func (q *KafkaQueue) Publish(ctx context.Context, msg ProcessMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	// Key = order id kalau kebaca, supaya event order yang sama
	// selalu jatuh ke partisi (dan worker) yang sama.
	key := ""
	var probe struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(msg.Content, &probe); err == nil && probe.ID != 0 {
		key = strconv.FormatInt(probe.ID, 10)
	}
	pm := &sarama.ProducerMessage{
		Topic: q.topic,
		Value: sarama.ByteEncoder(b),
	}
	if key != "" {
		pm.Key = sarama.StringEncoder(key)
	}
	_, _, err = q.producer.SendMessage(pm)
	return err
}

func (q *KafkaQueue) Close() error {
	return q.producer.Close()
}

type consumerHandler struct {
	handle Handler
}

func (h *consumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for m := range claim.Messages() {
		var msg ProcessMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			log.Printf("[WORKER ERROR] message tidak kebaca, offset di-commit: %v", err)
			sess.MarkMessage(m, "")
			continue
		}
		h.handle(sess.Context(), msg)
		// Handler selalu nyelesaiin secara idempoten (error nyangkut di
		// status DB), jadi offset aman di-commit.
		sess.MarkMessage(m, "")
	}
	return nil
}

// RunKafkaConsumer blocking loop; panggil di goroutine sendiri.
func RunKafkaConsumer(ctx context.Context, cfg KafkaConfig, h Handler) error {
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, newSaramaConfig())
	if err != nil {
		return err
	}
	defer group.Close()

	handler := &consumerHandler{handle: h}
	for {
		if err := group.Consume(ctx, []string{cfg.Topic}, handler); err != nil {
			log.Printf("[WORKER ERROR] consume: %v", err)
			time.Sleep(time.Second)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
