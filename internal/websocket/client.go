package websocket

import (
	"bytes"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 512

	// Размер буфера канала исходящих сообщений
	defaultClientBufferSize = 64
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// MessageHandler обрабатывает входящее сообщение клиента.
// Ошибка считается фатальной для соединения.
type MessageHandler func(message []byte, client *Client) error

// Client является посредником между WebSocket соединением и Hub.
type Client struct {
	// ID пользователя
	UserID string

	// Уникальный ID соединения
	ConnectionID string

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал исходящих сообщений
	send       chan []byte
	sendClosed atomic.Bool

	// Конкурсы, на которые подписан клиент
	mu            sync.RWMutex
	subscriptions map[string]struct{}
}

// NewClient создает клиента для установленного соединения
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		UserID:        userID,
		ConnectionID:  uuid.NewString(),
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, defaultClientBufferSize),
		subscriptions: make(map[string]struct{}),
	}
}

// readPump читает сообщения из соединения и передает их обработчику
func (c *Client) readPump(handler MessageHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		log.Printf("[WebSocket] Read pump stopped for UserID: %s, ConnID: %s", c.UserID, c.ConnectionID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Read error (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
			}
			return
		}

		if err := safeHandleMessage(message, c, handler); err != nil {
			log.Printf("[WebSocket] Handler error (UserID: %s, ConnID: %s): %v. Closing connection.", c.UserID, c.ConnectionID, err)
			return
		}
	}
}

// safeHandleMessage вызывает обработчик с recover
func safeHandleMessage(message []byte, client *Client, handler MessageHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WebSocket] PANIC recovered in message handler for UserID: %s, ConnID: %s. Panic: %v\n%s",
				client.UserID, client.ConnectionID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
	if handler == nil {
		return nil
	}
	return handler(message, client)
}

// writePump отправляет клиенту сообщения из канала send и ping-сообщения
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WebSocket] Write error (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// StartPumps регистрирует клиента в хабе, подписывает его на указанные конкурсы
// и запускает горутины чтения и записи
func (c *Client) StartPumps(handler MessageHandler, competitionIDs ...string) {
	if c.UserID == "" {
		log.Printf("[WebSocket] Client has no UserID, closing connection")
		c.conn.Close()
		return
	}
	c.hub.Register(c)
	for _, id := range competitionIDs {
		c.hub.Subscribe(c, id)
	}
	go c.writePump()
	go c.readPump(handler)
}

// enqueue кладет сообщение в буфер без блокировки.
// Возвращает false, если буфер переполнен или канал уже закрыт.
func (c *Client) enqueue(message []byte) bool {
	if c.sendClosed.Load() {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// CloseSend закрывает канал send ровно один раз
func (c *Client) CloseSend() bool {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
		return true
	}
	return false
}

// Subscriptions возвращает ID конкурсов, на которые подписан клиент
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.subscriptions))
	for id := range c.subscriptions {
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) addSubscription(competitionID string) {
	c.mu.Lock()
	c.subscriptions[competitionID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) removeSubscription(competitionID string) {
	c.mu.Lock()
	delete(c.subscriptions, competitionID)
	c.mu.Unlock()
}
