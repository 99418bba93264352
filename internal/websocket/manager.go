package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// CompetitionValidator проверяет, что на конкурс можно подписаться
type CompetitionValidator func(ctx context.Context, competitionID string) error

// incomingEvent: входящее сообщение клиента
type incomingEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Manager обрабатывает входящие WebSocket сообщения
type Manager struct {
	hub            *Hub
	validate       CompetitionValidator
	messageHandler map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает менеджер и регистрирует обработчики подписки
func NewManager(hub *Hub, validate CompetitionValidator) *Manager {
	m := &Manager{
		hub:            hub,
		validate:       validate,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
	m.RegisterHandler(SUBSCRIBE, m.handleSubscribe)
	m.RegisterHandler(UNSUBSCRIBE, m.handleUnsubscribe)
	return m
}

// RegisterHandler регистрирует обработчик для типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
}

// HandleMessage обрабатывает входящее сообщение клиента.
// Возвращает ошибку, если соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event incomingEvent
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("[WebSocketManager] Failed to unmarshal message from %s: %v", client.UserID, err)
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}
	return handler(event.Data, client)
}

// SendErrorToClient отправляет клиенту сообщение об ошибке, не закрывая соединение
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	if !m.hub.SendToClient(client, ERROR, ErrorData{Code: code, Message: message}) {
		log.Printf("[WebSocketManager] Failed to send error %s to client %s", code, client.UserID)
	}
}

func (m *Manager) handleSubscribe(data json.RawMessage, client *Client) error {
	var payload SubscriptionData
	if err := json.Unmarshal(data, &payload); err != nil || payload.CompetitionID == "" {
		m.SendErrorToClient(client, "invalid_subscription", "competition_id is required")
		return nil
	}

	if m.validate != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.validate(ctx, payload.CompetitionID); err != nil {
			code := "subscription_failed"
			if errors.Is(err, context.DeadlineExceeded) {
				code = "timeout"
			}
			m.SendErrorToClient(client, code, err.Error())
			return nil
		}
	}

	if !m.hub.Subscribe(client, payload.CompetitionID) {
		return fmt.Errorf("client %s is not registered", client.ConnectionID)
	}
	log.Printf("[WebSocketManager] Client %s subscribed to competition %s", client.UserID, payload.CompetitionID)
	m.hub.SendToClient(client, SUBSCRIBED, payload)
	return nil
}

func (m *Manager) handleUnsubscribe(data json.RawMessage, client *Client) error {
	var payload SubscriptionData
	if err := json.Unmarshal(data, &payload); err != nil || payload.CompetitionID == "" {
		m.SendErrorToClient(client, "invalid_subscription", "competition_id is required")
		return nil
	}
	m.hub.Unsubscribe(client, payload.CompetitionID)
	m.hub.SendToClient(client, UNSUBSCRIBED, payload)
	return nil
}

// GetMetrics возвращает метрики WebSocket-подсистемы
func (m *Manager) GetMetrics() map[string]interface{} {
	return m.hub.GetMetrics()
}
