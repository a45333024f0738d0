package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"scamazon_go/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// NotifyChannel 多实例之间同步通知的Redis频道
	NotifyChannel = "orders:notify"
)

// WSMessage WebSocket消息结构
type WSMessage struct {
	Type      string      `json:"type"` // order.created | order.delivered | order.returned | pong
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// envelope Redis频道中传递的通知
type envelope struct {
	UserIDs []string             `json:"user_ids"`
	Event   *services.OrderEvent `json:"event"`
}

// Client WebSocket客户端
type Client struct {
	UserID string
	conn   *websocket.Conn
	send   chan *WSMessage
	hub    *Hub
}

// Hub 订单通知中心：按用户管理连接，买家和卖家收到各自订单的状态变化
type Hub struct {
	clients  map[string]map[*Client]struct{} // userID -> 连接（同一用户可多端在线）
	mu       sync.RWMutex
	rdb      *redis.Client // 可为nil，此时只投递本实例连接
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHub 创建通知中心
func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		rdb:     rdb,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run 订阅Redis频道并把通知投递给本实例的连接，直到ctx结束
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		<-ctx.Done()
		return
	}

	pubsub := h.rdb.Subscribe(ctx, NotifyChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("invalid notification payload", zap.Error(err))
				continue
			}
			h.deliver(env.UserIDs, env.Event)
		}
	}
}

// Name 实现 services.EventSink
func (h *Hub) Name() string { return "websocket" }

// Publish 实现 services.EventSink：通知订单的买家和卖家
func (h *Hub) Publish(ctx context.Context, evt *services.OrderEvent) error {
	userIDs := []string{evt.BuyerID}
	if evt.SellerID != evt.BuyerID {
		userIDs = append(userIDs, evt.SellerID)
	}

	if h.rdb == nil {
		h.deliver(userIDs, evt)
		return nil
	}

	data, err := json.Marshal(envelope{UserIDs: userIDs, Event: evt})
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, NotifyChannel, data).Err()
}

// HandleConnection 升级为WebSocket连接，用户ID来自认证中间件
func (h *Hub) HandleConnection(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan *WSMessage, 64),
		hub:    h,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// Online 用户当前的连接数
func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[client.UserID] = conns
	}
	conns[client] = struct{}{}
	h.logger.Debug("websocket client connected", zap.String("user_id", client.UserID))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; ok {
		delete(conns, client)
		close(client.send)
	}
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
}

func (h *Hub) deliver(userIDs []string, evt *services.OrderEvent) {
	if evt == nil {
		return
	}
	msg := &WSMessage{
		Type:      evt.Type,
		Data:      evt,
		Timestamp: time.Now().Unix(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range userIDs {
		for client := range h.clients[userID] {
			select {
			case client.send <- msg:
			default:
				h.logger.Warn("client send buffer is full, dropping notification",
					zap.String("user_id", userID),
					zap.Uint("order_id", evt.OrderID))
			}
		}
	}
}

// readPump 读取客户端消息（只处理心跳），连接断开时注销
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}
		if msg.Type == "ping" {
			select {
			case c.send <- &WSMessage{Type: "pong", Timestamp: time.Now().Unix()}:
			default:
			}
		}
	}
}

// writePump 向连接写入通知并定时发送心跳
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
