package kafka

import (
	"Waypoint/internal/api/config"
	"time"

	"github.com/IBM/sarama"
)

// newSaramaConfig 生产者配置，SASL 可选
func newSaramaConfig(kafkaCfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Producer.RequiredAcks = sarama.WaitForLocal
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	c.Producer.Retry.Max = 3
	c.Producer.Timeout = 5 * time.Second
	// 同一任务的事件落在同一分区，保持顺序
	c.Producer.Partitioner = sarama.NewHashPartitioner

	return c
}
