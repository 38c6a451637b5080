package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title SC2SM API
// @version 1.0
// @description Turns GitHub commits and CodeRabbit reports into social media posts
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name sc2sm_session

// SetupRouter configures the HTTP routes
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// @Summary Health check
	// @Description Liveness probe. Does not touch the database.
	// @Tags system
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Router /health [get]
	r.GET("/health", h.Health)

	// @Summary GitHub webhook
	// @Description Receives push deliveries signed with X-Hub-Signature-256 and drafts a post per new commit
	// @Tags webhook
	// @Accept json
	// @Produce json
	// @Param X-GitHub-Event header string true "Event name"
	// @Param X-Hub-Signature-256 header string false "HMAC-SHA256 of the body"
	// @Success 200 {object} MessageResponse
	// @Failure 400 {object} ErrorResponse
	// @Failure 401 {object} ErrorResponse
	// @Router /webhook/github [post]
	r.POST("/webhook/github", h.GitHubWebhook)

	r.GET("/", h.Index)

	pages := r.Group("/", h.RequireLogin())
	{
		// @Summary Dashboard
		// @Tags pages
		// @Produce json
		// @Success 200 {object} DashboardResponse
		// @Router /dashboard [get]
		pages.GET("/dashboard", h.Dashboard)

		pages.POST("/posts/:id/edit", h.EditPostForm)
		pages.POST("/posts/:id/publish", h.PublishPostForm)
		pages.POST("/posts/:id/delete", h.DeletePostForm)
	}

	auth := r.Group("/auth")
	{
		auth.GET("/login", h.GitHubLogin)
		auth.GET("/callback", h.GitHubCallback)
		auth.GET("/logout", h.Logout)

		// @Summary Start GitHub device flow
		// @Tags auth
		// @Produce json
		// @Success 200 {object} oauth.DeviceStart
		// @Failure 429 {object} ErrorResponse "Too many pending device codes"
		// @Failure 500 {object} ErrorResponse
		// @Failure 502 {object} ErrorResponse
		// @Router /auth/device [post]
		auth.POST("/device", h.StartDeviceFlow)

		// @Summary Poll GitHub device flow
		// @Tags auth
		// @Accept json
		// @Produce json
		// @Param request body DevicePollRequest true "Device code"
		// @Success 200 {object} DevicePollResponse
		// @Success 202 {object} DevicePollResponse
		// @Failure 400 {object} DevicePollResponse
		// @Failure 403 {object} DevicePollResponse
		// @Router /auth/poll [post]
		auth.POST("/poll", h.PollDeviceFlow)

		// @Summary Device code status
		// @Tags auth
		// @Produce json
		// @Param device_code path string true "Device code"
		// @Success 200 {object} oauth.DeviceInfo
		// @Failure 400 {object} ErrorResponse
		// @Failure 404 {object} ErrorResponse
		// @Router /auth/status/{device_code} [get]
		auth.GET("/status/:device_code", h.DeviceFlowStatus)
	}

	x := r.Group("/oauth/x")
	{
		x.GET("/authorize", h.RequireLogin(), h.XAuthorize)
		x.GET("/callback", h.RequireLogin(), h.XCallback)
		x.GET("/disconnect", h.RequireLogin(), h.XDisconnect)

		// @Summary X connection status
		// @Tags oauth
		// @Produce json
		// @Success 200 {object} oauth.XStatus
		// @Failure 401 {object} ErrorResponse
		// @Router /oauth/x/status [get]
		x.GET("/status", h.RequireUser(), h.XStatus)
	}

	reports := r.Group("/reports")
	{
		// @Summary Generate a CodeRabbit report
		// @Description Queues report generation. With sync=true the report is generated before answering.
		// @Tags reports
		// @Accept json
		// @Produce json
		// @Param sync query bool false "Generate synchronously"
		// @Param request body object true "Report request" SchemaExample({"from": "2024-05-01", "to": "2024-05-31"})
		// @Success 200 {object} ReportQueuedResponse
		// @Success 201 {object} ReportCreatedResponse
		// @Failure 400 {object} ErrorResponse
		// @Failure 500 {object} ReportFailedResponse
		// @Failure 503 {object} ErrorResponse
		// @Router /reports/generate [post]
		reports.POST("/generate", h.GenerateReport)

		// @Summary List reports
		// @Tags reports
		// @Produce json
		// @Param organization query string false "Organization"
		// @Param status query string false "pending, completed or failed"
		// @Param from_date query string false "Created on or after (YYYY-MM-DD)"
		// @Param to_date query string false "Created on or before (YYYY-MM-DD)"
		// @Param limit query int false "Number of reports to return" default(50)
		// @Param offset query int false "Number of reports to skip" default(0)
		// @Success 200 {object} reports.ListResult
		// @Failure 400 {object} ErrorResponse
		// @Router /reports [get]
		reports.GET("", h.ListReports)

		// @Summary Lowest scoring reports
		// @Tags reports
		// @Produce json
		// @Success 200 {object} map[string]interface{}
		// @Router /reports/bottom5 [get]
		reports.GET("/bottom5", h.BottomReports)

		// @Summary Get a report
		// @Tags reports
		// @Produce json
		// @Param id path int true "Report ID"
		// @Success 200 {object} models.Report
		// @Failure 404 {object} ErrorResponse
		// @Router /reports/{id} [get]
		reports.GET("/:id", h.GetReport)

		// @Summary Report metrics
		// @Tags reports
		// @Produce json
		// @Param id path int true "Report ID"
		// @Success 200 {object} reports.MetricsResult
		// @Failure 404 {object} ErrorResponse
		// @Router /reports/{id}/metrics [get]
		reports.GET("/:id/metrics", h.GetReportMetrics)

		reports.POST("/:id/post", h.RequireUser(), h.DraftReportPost)
	}

	v1 := r.Group("/api/v1", h.RequireUser())
	{
		posts := v1.Group("/posts")
		{
			// @Summary List posts
			// @Tags posts
			// @Produce json
			// @Param status query string false "draft, scheduled, published or failed"
			// @Param limit query int false "Number of posts to return" default(20)
			// @Param offset query int false "Number of posts to skip" default(0)
			// @Success 200 {object} posts.ListResult
			// @Failure 400 {object} ErrorResponse
			// @Failure 401 {object} ErrorResponse
			// @Router /api/v1/posts [get]
			posts.GET("", h.ListPosts)

			// @Summary Create a draft post
			// @Tags posts
			// @Accept json
			// @Produce json
			// @Param request body PostContentRequest true "Post content"
			// @Success 201 {object} models.Post
			// @Failure 400 {object} ErrorResponse
			// @Router /api/v1/posts [post]
			posts.POST("", h.CreatePost)

			posts.GET("/:id", h.GetPost)
			posts.PUT("/:id", h.UpdatePost)

			// @Summary Publish a post to X
			// @Tags posts
			// @Produce json
			// @Param id path int true "Post ID"
			// @Success 200 {object} models.Post
			// @Failure 400 {object} ErrorResponse "Post is already published"
			// @Failure 404 {object} ErrorResponse
			// @Failure 429 {object} ErrorResponse "Daily post limit reached"
			// @Failure 502 {object} ErrorResponse "Publishing failed"
			// @Router /api/v1/posts/{id}/publish [post]
			posts.POST("/:id/publish", h.PublishPost)

			// @Summary Schedule a post
			// @Tags posts
			// @Accept json
			// @Produce json
			// @Param id path int true "Post ID"
			// @Param request body ScheduleRequest true "Publication time"
			// @Success 200 {object} models.Post
			// @Failure 400 {object} ErrorResponse
			// @Router /api/v1/posts/{id}/schedule [post]
			posts.POST("/:id/schedule", h.SchedulePost)

			posts.DELETE("/:id", h.DeletePost)
		}

		repositories := v1.Group("/repositories")
		{
			// @Summary List tracked repositories
			// @Tags repositories
			// @Produce json
			// @Success 200 {array} models.Repository
			// @Failure 401 {object} ErrorResponse
			// @Router /api/v1/repositories [get]
			repositories.GET("", h.ListRepositories)

			// @Summary Track a repository
			// @Tags repositories
			// @Accept json
			// @Produce json
			// @Param request body TrackRepositoryRequest true "Repository"
			// @Success 201 {object} models.Repository
			// @Failure 400 {object} ErrorResponse "Repository is already tracked"
			// @Failure 404 {object} ErrorResponse
			// @Router /api/v1/repositories [post]
			repositories.POST("", h.TrackRepository)

			repositories.PUT("/:id/settings", h.UpdateRepositorySettings)
			repositories.DELETE("/:id", h.DeleteRepository)

			// @Summary List ingested commits
			// @Tags repositories
			// @Produce json
			// @Param id path int true "Repository ID"
			// @Param limit query int false "Number of commits to return" default(50)
			// @Param offset query int false "Number of commits to skip" default(0)
			// @Success 200 {object} github.CommitPage
			// @Failure 400 {object} ErrorResponse
			// @Failure 404 {object} ErrorResponse
			// @Router /api/v1/repositories/{id}/commits [get]
			repositories.GET("/:id/commits", h.ListRepositoryCommits)

			// @Summary Pull recent commits
			// @Description Ingests commits since the last sync, or the last 7 days
			// @Tags repositories
			// @Produce json
			// @Param id path int true "Repository ID"
			// @Success 200 {object} github.SyncResult
			// @Failure 404 {object} ErrorResponse
			// @Router /api/v1/repositories/{id}/sync [post]
			repositories.POST("/:id/sync", h.SyncRepository)
		}

		// @Summary Update post preferences
		// @Tags users
		// @Accept json
		// @Produce json
		// @Param request body models.UserPreferences true "Preferences"
		// @Success 200 {object} models.User
		// @Failure 400 {object} ErrorResponse
		// @Router /api/v1/me/preferences [put]
		v1.PUT("/me/preferences", h.UpdatePreferences)
	}

	return r
}
