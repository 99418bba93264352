package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/vibtrix/vibtrix-api/internal/middleware"
	"github.com/vibtrix/vibtrix-api/internal/websocket"
	"github.com/vibtrix/vibtrix-api/pkg/auth"
)

const subscriptionCheckTimeout = 5 * time.Second

// WSHandler обрабатывает WebSocket соединения подписчиков конкурсов
type WSHandler struct {
	wsHub      *websocket.Hub
	wsManager  *websocket.Manager
	jwtService *auth.JWTService
	validate   websocket.CompetitionValidator
	upgrader   gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins синхронизирован с настройками CORS.
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	jwtService *auth.JWTService,
	validate websocket.CompetitionValidator,
	allowedOrigins []string,
) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &WSHandler{
		wsHub:      wsHub,
		wsManager:  wsManager,
		jwtService: jwtService,
		validate:   validate,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Пустой Origin: не браузерный клиент (мобильное приложение, curl)
				if origin == "" {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
				return false
			},
			EnableCompression: true,
		},
	}
}

// IssueTicket выдает короткоживущий тикет для подключения к WebSocket.
// POST /api/ws/ticket
func (h *WSHandler) IssueTicket(c *gin.Context) {
	ticket, err := h.jwtService.GenerateWSTicket(c.GetString(middleware.ContextUserID))
	if err != nil {
		log.Printf("[WSHandler] Ошибка генерации тикета: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue ticket"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// HandleConnection подключает клиента и подписывает его на события конкурса.
// GET /ws/competitions/:id?ticket=...
func (h *WSHandler) HandleConnection(c *gin.Context) {
	competitionID := c.GetString("competitionID")

	// НЕ логируем тикет - это секретные данные аутентификации
	ticket := c.Query("ticket")
	if ticket == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication ticket parameter"})
		return
	}

	claims, err := h.jwtService.ParseWSTicket(ticket)
	if err != nil {
		log.Printf("WebSocket: Invalid or expired ticket - %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket"})
		return
	}

	if h.validate != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), subscriptionCheckTimeout)
		err := h.validate(ctx, competitionID)
		cancel()
		if err != nil {
			handleError(c, "WSHandler", err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("[WSHandler] Error upgrading connection: %v", err)
		return
	}

	log.Printf("[WSHandler] Connection upgraded for UserID: %s, competition %s", claims.UserID, competitionID)

	client := websocket.NewClient(h.wsHub, conn, claims.UserID)
	client.StartPumps(h.wsManager.HandleMessage, competitionID)
}
