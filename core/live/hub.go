package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"playlister/logger"
	"playlister/model"

	"github.com/gorilla/websocket"
)

// MessageType 消息类型
type MessageType string

// MsgTypePlay 播放计数更新
const MsgTypePlay MessageType = "play"

const (
	sendBufferSize = 16
	readLimit      = 512
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	writeWait      = 10 * time.Second
)

// PlayEvent is pushed to every subscriber of a playlist after a play.
type PlayEvent struct {
	Type                MessageType `json:"type"`
	PlaylistID          string      `json:"playlistId"`
	Listens             int64       `json:"listens"`
	UniqueListenerCount int         `json:"uniqueListenerCount"`
	Timestamp           int64       `json:"timestamp"`
}

// Client is one WebSocket subscriber of a playlist.
type Client struct {
	Hub        *Hub
	Conn       *websocket.Conn
	Send       chan []byte
	PlaylistID string
}

// NewClient creates a client subscribed to playlistID.
func NewClient(hub *Hub, conn *websocket.Conn, playlistID string) *Client {
	return &Client{
		Hub:        hub,
		Conn:       conn,
		Send:       make(chan []byte, sendBufferSize),
		PlaylistID: playlistID,
	}
}

type broadcastMessage struct {
	playlistID string
	message    []byte
}

// Hub 播放列表 WebSocket 管理中心
type Hub struct {
	// 播放列表 -> 客户端集合
	playlists map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu   sync.RWMutex
	done chan struct{}
	once sync.Once
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		playlists:  make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.broadcastToPlaylist(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub. Safe to call more than once.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.playlists[client.PlaylistID] == nil {
		h.playlists[client.PlaylistID] = make(map[*Client]bool)
	}
	h.playlists[client.PlaylistID][client] = true

	logger.Debug("live client registered", logger.String("playlist", client.PlaylistID))
}

// removeClient 移除客户端（需要持有锁）
func (h *Hub) removeClient(client *Client) {
	clients, ok := h.playlists[client.PlaylistID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.playlists, client.PlaylistID)
	}

	logger.Debug("live client unregistered", logger.String("playlist", client.PlaylistID))
}

// broadcastToPlaylist runs on the hub goroutine. Clients whose send buffer
// is full are dropped.
func (h *Hub) broadcastToPlaylist(msg *broadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.playlists[msg.playlistID] {
		select {
		case client.Send <- msg.message:
		default:
			logger.Warn("live client too slow, dropping", logger.String("playlist", msg.playlistID))
			h.removeClient(client)
		}
	}
}

// cleanup 清理所有连接
func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.playlists {
		for client := range clients {
			close(client.Send)
		}
	}
	h.playlists = make(map[string]map[*Client]bool)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every subscriber of playlistID without blocking.
func (h *Hub) Broadcast(playlistID string, message []byte) {
	select {
	case h.broadcast <- &broadcastMessage{playlistID: playlistID, message: message}:
	default:
		logger.Warn("live broadcast queue full, dropping event", logger.String("playlist", playlistID))
	}
}

// NotifyPlay broadcasts the new counters of p.
func (h *Hub) NotifyPlay(p *model.Playlist) {
	data, err := json.Marshal(PlayEvent{
		Type:                MsgTypePlay,
		PlaylistID:          p.ID,
		Listens:             p.Listens,
		UniqueListenerCount: len(p.UniqueListeners),
		Timestamp:           time.Now().UnixMilli(),
	})
	if err != nil {
		logger.Error("failed to encode play event", logger.ErrorField(err))
		return
	}
	h.Broadcast(p.ID, data)
}

// ClientCount 获取播放列表订阅者数量
func (h *Hub) ClientCount(playlistID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.playlists[playlistID])
}

// TotalClients counts subscribers across all playlists.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.playlists {
		n += len(clients)
	}
	return n
}

// ========== Client 方法 ==========

// ReadPump 读取消息循环. Incoming frames are discarded; reading keeps the
// pong handler running and notices when the peer goes away.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for ctx.Err() == nil {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.String("playlist", c.PlaylistID))
			}
			return
		}
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
