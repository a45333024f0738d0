package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink 将订单事件写入Kafka主题
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink brokersCSV为空时返回nil（未启用）
func NewKafkaSink(brokersCSV, topic string) *KafkaSink {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil
	}

	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (s *KafkaSink) Name() string { return "kafka:" + s.writer.Topic }

func (s *KafkaSink) Publish(ctx context.Context, evt *OrderEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	// 同一订单的事件落在同一分区，保证顺序
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(evt.OrderID), 10)),
		Value: payload,
		Time:  evt.Timestamp,
	})
}

// Close 关闭writer
func (s *KafkaSink) Close() error {
	if s == nil {
		return nil
	}
	return s.writer.Close()
}
