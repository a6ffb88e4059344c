package kafka

import (
	"Waypoint/internal/api/config"
	"Waypoint/internal/model"
	"context"
	"fmt"
	log "log/slog"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// UploadEventProducer 把上传事件同步写入 Kafka，供下游消费
type UploadEventProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewUploadEventProducer 未配置 broker 时返回 nil，调用方跳过该出口
func NewUploadEventProducer(cfg config.KafkaConfig) (*UploadEventProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	p, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewUploadEventProducerWith(p, cfg.UploadTopic), nil
}

func NewUploadEventProducerWith(p sarama.SyncProducer, topic string) *UploadEventProducer {
	return &UploadEventProducer{producer: p, topic: topic}
}

// Publish 只投递状态变化，进度事件过多不进 Kafka
func (s *UploadEventProducer) Publish(ctx context.Context, evt model.UploadEvent) error {
	if evt.State == model.UploadStateUploading && evt.Progress > 0 && evt.Progress < 100 {
		return nil
	}

	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(evt.TaskID),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("state"), Value: []byte(evt.State)},
			{Key: []byte("progress"), Value: []byte(strconv.Itoa(evt.Progress))},
		},
	}

	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		log.ErrorContext(ctx, "upload event to kafka failed", "taskID", evt.TaskID, "err", err)
		return err
	}
	log.DebugContext(ctx, "upload event sent", "taskID", evt.TaskID, "partition", partition, "offset", offset)
	return nil
}

func (s *UploadEventProducer) Close() error {
	return s.producer.Close()
}
