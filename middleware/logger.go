package middleware

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog 访问日志结构
type AccessLog struct {
	Time       time.Time `json:"time"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Query      string    `json:"query,omitempty"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent,omitempty"`
	StatusCode int       `json:"status_code"`
	Latency    int64     `json:"latency_ms"`
	UserID     string    `json:"user_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// NewLogger 按运行模式创建zap日志
func NewLogger(mode string) (*zap.Logger, error) {
	var zapConfig zap.Config

	if mode == gin.DebugMode || mode == "" {
		// 开发环境 - 控制台输出
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		// 生产环境 - JSON格式
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapConfig.Build()
}

// AccessLogger 异步访问日志：worker池写zap，并同步到Redis Stream
type AccessLogger struct {
	logger *zap.Logger
	rdb    *redis.Client // 可为nil
	stream string
	queue  chan *AccessLog
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAccessLogger 创建访问日志并启动worker
func NewAccessLogger(logger *zap.Logger, rdb *redis.Client, workers int) *AccessLogger {
	if workers < 1 {
		workers = 1
	}
	al := &AccessLogger{
		logger: logger,
		rdb:    rdb,
		stream: "access_logs",
		queue:  make(chan *AccessLog, 1000),
	}
	for i := 0; i < workers; i++ {
		al.wg.Add(1)
		go al.worker()
	}
	return al
}

// Close 等待队列中的日志处理完毕
func (al *AccessLogger) Close() {
	al.once.Do(func() {
		close(al.queue)
		al.wg.Wait()
	})
}

func (al *AccessLogger) worker() {
	defer al.wg.Done()
	for entry := range al.queue {
		al.write(entry)
	}
}

func (al *AccessLogger) write(entry *AccessLog) {
	fields := []zap.Field{
		zap.String("method", entry.Method),
		zap.String("path", entry.Path),
		zap.String("query", entry.Query),
		zap.String("ip", entry.IP),
		zap.Int("status_code", entry.StatusCode),
		zap.Int64("latency_ms", entry.Latency),
		zap.String("user_id", entry.UserID),
		zap.String("request_id", entry.RequestID),
	}
	if entry.Error != "" {
		fields = append(fields, zap.String("error", entry.Error))
	}
	if entry.StatusCode >= 500 {
		al.logger.Error("access_log", fields...)
	} else {
		al.logger.Info("access_log", fields...)
	}

	if al.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, _ := json.Marshal(entry)
	err := al.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: al.stream,
		MaxLen: 100000,
		Approx: true,
		Values: map[string]interface{}{
			"timestamp":   entry.Time.Unix(),
			"method":      entry.Method,
			"path":        entry.Path,
			"status_code": entry.StatusCode,
			"latency_ms":  entry.Latency,
			"user_id":     entry.UserID,
			"full_data":   string(data),
		},
	}).Err()
	if err != nil {
		al.logger.Debug("failed to stream access log", zap.Error(err))
	}
}

// Middleware 返回日志中间件
func (al *AccessLogger) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		entry := &AccessLog{
			Time:       start,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Query:      c.Request.URL.RawQuery,
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			StatusCode: c.Writer.Status(),
			Latency:    time.Since(start).Milliseconds(),
			UserID:     c.GetString(ContextUserID),
			RequestID:  requestID,
		}
		if len(c.Errors) > 0 {
			entry.Error = c.Errors.String()
		}

		// 队列满直接丢弃，不阻塞请求
		select {
		case al.queue <- entry:
		default:
			al.logger.Warn("access log queue is full, dropping entry",
				zap.String("method", entry.Method),
				zap.String("path", entry.Path))
		}
	}
}
