package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibtrix/vibtrix-api/internal/middleware"
)

// Routes собирает обработчики и middleware для регистрации маршрутов
type Routes struct {
	Competition   *CompetitionHandler
	Participation *ParticipationHandler
	Post          *PostHandler
	Feed          *FeedHandler
	Cron          *CronHandler
	WS            *WSHandler

	Auth       *middleware.AuthMiddleware
	CronSecret string
	// RateLimiter может быть nil, тогда ограничения не применяются
	RateLimiter *middleware.RateLimiter
}

func (rt *Routes) writeLimit() gin.HandlerFunc {
	if rt.RateLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rt.RateLimiter.Limit(middleware.WriteRateLimitConfig())
}

func (rt *Routes) cronLimit() gin.HandlerFunc {
	if rt.RateLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rt.RateLimiter.LimitByIP(middleware.CronRateLimitConfig())
}

// Register настраивает маршруты API и WebSocket
func (rt *Routes) Register(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	competitionID := middleware.ExtractIDParam("id", "competitionID")
	roundID := middleware.ExtractIDParam("roundId", "roundID")

	api := router.Group("/api")
	{
		competitions := api.Group("/competitions")
		{
			competitions.GET("", rt.Competition.ListCompetitions)

			withID := competitions.Group("/:id", competitionID)
			{
				withID.GET("", rt.Competition.GetCompetition)
				withID.GET("/feed", rt.Feed.GetFeed)
				withID.GET("/rounds/:roundId/results", roundID, rt.Feed.GetRoundResults)
				withID.GET("/rounds/:roundId/results/export", roundID, rt.Feed.ExportRoundResults)

				authed := withID.Group("", rt.Auth.RequireAuth(), rt.writeLimit())
				{
					authed.POST("/join", rt.Participation.Join)
					authed.POST("/rounds/:roundId/entries", roundID, rt.Participation.Submit)
				}
			}
		}

		posts := api.Group("/posts", rt.Auth.RequireAuth(), rt.writeLimit())
		{
			posts.POST("", rt.Post.CreatePost)
			postID := middleware.ExtractIDParam("id", "postID")
			posts.POST("/:id/like", postID, rt.Post.Like)
			posts.DELETE("/:id/like", postID, rt.Post.Unlike)
		}

		api.POST("/ws/ticket", rt.Auth.RequireAuth(), rt.WS.IssueTicket)

		admin := api.Group("/admin", rt.Auth.RequireAuth(), rt.Auth.AdminOnly())
		{
			admin.POST("/competitions", rt.Competition.CreateCompetition)
			admin.POST("/competitions/:id/rounds", competitionID, rt.Competition.AddRound)
			admin.POST("/competitions/:id/rounds/:roundId/process", competitionID, roundID, rt.Competition.ProcessRound)
		}

		cron := api.Group("/cron", rt.cronLimit(), middleware.CronSecret(rt.CronSecret))
		{
			cron.GET("/process-rounds", rt.Cron.ProcessRounds)
			cron.POST("/process-rounds", rt.Cron.ProcessRounds)
			cron.GET("/last-report", rt.Cron.LastReport)
			cron.GET("/runs", rt.Cron.Runs)
		}
	}

	router.GET("/ws/competitions/:id", competitionID, rt.WS.HandleConnection)
}
