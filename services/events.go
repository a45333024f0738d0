package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 订单事件类型
const (
	EventOrderCreated   = "order.created"
	EventOrderDelivered = "order.delivered"
	EventOrderReturned  = "order.returned"
)

// OrderEvent 订单状态变化事件（事务提交后发布）
type OrderEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	OrderID   uint      `json:"order_id"`
	ListingID uint      `json:"listing_id"`
	ISBN      string    `json:"isbn"`
	BuyerID   string    `json:"buyer_id"`
	SellerID  string    `json:"seller_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink 事件投递目标
type EventSink interface {
	Name() string
	Publish(ctx context.Context, evt *OrderEvent) error
}

// EventPublisher 异步事件发布器
// 事件进入缓冲队列，由worker池投递到各个sink；投递失败只记录日志
type EventPublisher struct {
	sinks     []EventSink
	queue     chan *OrderEvent
	logger    *zap.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewEventPublisher 创建事件发布器并启动worker
func NewEventPublisher(logger *zap.Logger, workers int, sinks ...EventSink) *EventPublisher {
	if workers < 1 {
		workers = 1
	}

	p := &EventPublisher{
		queue:  make(chan *OrderEvent, 1000),
		logger: logger,
	}
	for _, s := range sinks {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Publish 入队事件，队列满时丢弃（不阻塞请求）
func (p *EventPublisher) Publish(evt *OrderEvent) {
	if p == nil {
		return
	}
	if evt.EventID == "" {
		evt.EventID = uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	select {
	case p.queue <- evt:
	default:
		p.logger.Warn("event queue is full, dropping event",
			zap.String("type", evt.Type),
			zap.Uint("order_id", evt.OrderID))
	}
}

// Close 停止接收事件并等待队列投递完毕
func (p *EventPublisher) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

func (p *EventPublisher) worker(workerID int) {
	defer p.wg.Done()

	for evt := range p.queue {
		for _, sink := range p.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := sink.Publish(ctx, evt); err != nil {
				p.logger.Error("failed to publish order event",
					zap.Int("worker", workerID),
					zap.String("sink", sink.Name()),
					zap.String("type", evt.Type),
					zap.Uint("order_id", evt.OrderID),
					zap.Error(err))
			}
			cancel()
		}
	}
}

// RedisStreamSink 将事件写入Redis Stream
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamSink client为nil时返回nil（sink被忽略）
func NewRedisStreamSink(client *redis.Client, stream string) *RedisStreamSink {
	if client == nil {
		return nil
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: 100000}
}

func (s *RedisStreamSink) Name() string { return "redis:" + s.stream }

func (s *RedisStreamSink) Publish(ctx context.Context, evt *OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event":     evt.Type,
			"order_id":  evt.OrderID,
			"buyer_id":  evt.BuyerID,
			"seller_id": evt.SellerID,
			"timestamp": evt.Timestamp.Unix(),
			"full_data": string(data),
		},
	}).Err()
}
