package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub хранит подключенных клиентов и их подписки на конкурсы
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	// rooms: competitionID -> подписанные клиенты
	rooms  map[string]map[*Client]struct{}
	closed bool
}

// NewHub создает пустой хаб
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Register добавляет клиента в хаб
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		client.CloseSend()
		return
	}
	h.clients[client] = struct{}{}
	log.Printf("[WebSocket] Client registered: UserID %s, ConnID %s (total %d)", client.UserID, client.ConnectionID, len(h.clients))
}

// Unregister удаляет клиента из хаба и всех комнат и закрывает его канал отправки
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for _, competitionID := range client.Subscriptions() {
		h.leaveLocked(client, competitionID)
	}
	h.mu.Unlock()

	client.CloseSend()
	log.Printf("[WebSocket] Client unregistered: UserID %s, ConnID %s", client.UserID, client.ConnectionID)
}

// Subscribe подписывает клиента на события конкурса
func (h *Hub) Subscribe(client *Client, competitionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return false
	}
	room, ok := h.rooms[competitionID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[competitionID] = room
	}
	room[client] = struct{}{}
	client.addSubscription(competitionID)
	return true
}

// Unsubscribe отменяет подписку клиента на события конкурса
func (h *Hub) Unsubscribe(client *Client, competitionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, competitionID)
}

func (h *Hub) leaveLocked(client *Client, competitionID string) {
	if room, ok := h.rooms[competitionID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, competitionID)
		}
	}
	client.removeSubscription(competitionID)
}

// PublishToCompetition рассылает событие всем подписчикам конкурса.
// Клиенты с переполненным буфером отключаются.
func (h *Hub) PublishToCompetition(competitionID string, eventType string, data interface{}) {
	message, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[WebSocket] Failed to marshal event %s for competition %s: %v", eventType, competitionID, err)
		return
	}

	var slow []*Client
	delivered := 0
	h.mu.RLock()
	for client := range h.rooms[competitionID] {
		if client.enqueue(message) {
			delivered++
		} else {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		log.Printf("[WebSocket] Send buffer full for UserID %s, ConnID %s. Disconnecting.", client.UserID, client.ConnectionID)
		h.Unregister(client)
	}
	if delivered > 0 {
		log.Printf("[WebSocket] Event %s for competition %s delivered to %d clients", eventType, competitionID, delivered)
	}
}

// SendToClient отправляет событие одному клиенту
func (h *Hub) SendToClient(client *Client, eventType string, data interface{}) bool {
	message, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[WebSocket] Failed to marshal event %s: %v", eventType, err)
		return false
	}
	// Канал закрывается только после удаления клиента из хаба под блокировкой
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client]; !ok {
		return false
	}
	return client.enqueue(message)
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount возвращает количество подписчиков конкурса
func (h *Hub) SubscriberCount(competitionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[competitionID])
}

// GetMetrics возвращает метрики хаба
func (h *Hub) GetMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_connections": len(h.clients),
		"active_rooms":       len(h.rooms),
	}
}

// Close отключает всех клиентов. Новые клиенты после Close не регистрируются.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		client.CloseSend()
	}
	log.Printf("[WebSocket] Hub closed, %d clients disconnected", len(clients))
}
