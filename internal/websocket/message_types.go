package websocket

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Типы сообщений от клиента
const (
	// SUBSCRIBE подписывает клиента на события конкурса
	SUBSCRIBE = "competition:subscribe"

	// UNSUBSCRIBE отменяет подписку на события конкурса
	UNSUBSCRIBE = "competition:unsubscribe"
)

// Типы служебных сообщений сервера
const (
	// SUBSCRIBED подтверждает подписку
	SUBSCRIBED = "competition:subscribed"

	// UNSUBSCRIBED подтверждает отписку
	UNSUBSCRIBED = "competition:unsubscribed"

	// ERROR сообщает об ошибке обработки сообщения
	ERROR = "error"
)

// SubscriptionData: данные сообщений подписки
type SubscriptionData struct {
	CompetitionID string `json:"competition_id"`
}

// ErrorData: данные сообщения об ошибке
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
