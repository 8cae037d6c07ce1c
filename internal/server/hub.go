package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shouni/go-storyboard-kit/pkg/metrics"
	"github.com/shouni/go-storyboard-kit/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 64
)

// snapshotMessage は接続直後に送る現在のプロジェクト全体です。
type snapshotMessage struct {
	Type    string         `json:"type"`
	Project store.Snapshot `json:"project"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub はストアの変更イベントを接続中の WebSocket クライアントへ配信します。
type Hub struct {
	store    *store.Store
	upgrader websocket.Upgrader
	events   <-chan store.Event
	cancel   func()

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub は st を購読する Hub を生成します。配信は Run を呼ぶまで開始されません。
func NewHub(st *store.Store) *Hub {
	events, cancel := st.Subscribe()
	return &Hub{
		store:  st,
		events: events,
		cancel: cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// Run は ctx が終了するまでイベントを配信します。終了時には全クライアントを切断します。
func (h *Hub) Run(ctx context.Context) {
	defer h.cancel()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-h.events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Warn("イベントのエンコードに失敗しました", "type", ev.Type, "error", err)
				continue
			}
			h.broadcast(payload)
		}
	}
}

// ClientCount は接続中のクライアント数を返します。
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS は接続を WebSocket にアップグレードし、スナップショットを送信した後にイベント配信を開始します。
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "WebSocketへのアップグレードに失敗しました", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, clientSendSize)}
	snapshot, err := json.Marshal(snapshotMessage{Type: "snapshot", Project: h.store.Snapshot()})
	if err == nil {
		client.send <- snapshot
	}
	h.register(client)

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WebsocketClients.Inc()
	slog.Debug("WebSocketクライアントが接続しました", "remote", c.conn.RemoteAddr().String())
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
		metrics.WebsocketClients.Dec()
	}
}

// broadcast は送信キューが詰まっているクライアントを切断します。
func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	var slow []*wsClient
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("送信キューが溢れたためWebSocketクライアントを切断します")
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
		metrics.WebsocketClients.Dec()
	}
}

// readPump はクライアントからのメッセージを読み捨て、切断を検知します。
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
