// Package realtime entrega eventos (notificações, mudanças de status) aos usuários
// conectados por websocket.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	sendBuffer     = 32
	publishBuffer  = 256
	maxInboundSize = 1024
)

// Event é o envelope enviado ao cliente.
type Event struct {
	Tipo    string `json:"tipo"`
	Payload any    `json:"payload"`
}

type envelope struct {
	userID int64 // 0 = todos
	data   []byte
}

// Client é uma conexão websocket de um usuário.
type Client struct {
	ID     string
	UserID int64
	send   chan []byte
	once   sync.Once
}

func newClient(userID int64) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub mantém os clientes por usuário e faz o fan-out dos eventos.
// Publicar nunca bloqueia quem chama: a fila é drenada por Run.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	queue   chan envelope
	done    chan struct{}
	log     *logrus.Entry
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		queue:   make(chan envelope, publishBuffer),
		done:    make(chan struct{}),
		log:     logrus.WithField("component", "realtime"),
	}
}

// Run drena a fila até o ctx ser cancelado; ao sair, desconecta todos.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case env := <-h.queue:
			h.deliver(env)
		}
	}
}

// Done fecha quando Run termina.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.UserID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			c.close()
		}
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for uid, set := range h.clients {
		for c := range set {
			c.close()
		}
		delete(h.clients, uid)
	}
}

// ConnectedUsers devolve quantos usuários distintos estão conectados.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishUser envia um evento a todas as conexões de um usuário.
func (h *Hub) PublishUser(userID int64, tipo string, payload any) {
	if userID <= 0 {
		return
	}
	h.enqueue(userID, tipo, payload)
}

// Broadcast envia um evento a todos os usuários conectados.
func (h *Hub) Broadcast(tipo string, payload any) {
	h.enqueue(0, tipo, payload)
}

func (h *Hub) enqueue(userID int64, tipo string, payload any) {
	data, err := json.Marshal(Event{Tipo: tipo, Payload: payload})
	if err != nil {
		h.log.WithError(err).WithField("tipo", tipo).Warn("evento não serializável")
		return
	}
	select {
	case h.queue <- envelope{userID: userID, data: data}:
	default:
		h.log.WithField("tipo", tipo).Warn("fila de eventos cheia, evento descartado")
	}
}

func (h *Hub) deliver(env envelope) {
	var slow []*Client

	h.mu.RLock()
	if env.userID > 0 {
		for c := range h.clients[env.userID] {
			if !trySend(c, env.data) {
				slow = append(slow, c)
			}
		}
	} else {
		for _, set := range h.clients {
			for c := range set {
				if !trySend(c, env.data) {
					slow = append(slow, c)
				}
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.WithFields(logrus.Fields{"user_id": c.UserID, "client_id": c.ID}).Warn("cliente lento desconectado")
		h.unregister(c)
	}
}

func trySend(c *Client, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Serve registra a conexão e bloqueia até o cliente desconectar.
func (h *Hub) Serve(conn *websocket.Conn, userID int64) {
	c := newClient(userID)
	h.register(c)
	h.log.WithFields(logrus.Fields{"user_id": userID, "client_id": c.ID}).Debug("cliente conectado")

	go writePump(conn, c)
	readPump(conn)

	h.unregister(c)
	h.log.WithFields(logrus.Fields{"user_id": userID, "client_id": c.ID}).Debug("cliente desconectado")
}

// readPump só existe para processar pong/close; mensagens do cliente são ignoradas.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
