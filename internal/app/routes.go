package app

import (
	"github.com/gin-gonic/gin"
	"github.com/votehub/core/internal/middleware"
	"github.com/votehub/core/internal/modules/catalog/category"
	"github.com/votehub/core/internal/modules/catalog/pollconfig"
	"github.com/votehub/core/internal/modules/polling/invite"
	"github.com/votehub/core/internal/modules/polling/poll"
	"github.com/votehub/core/internal/modules/polling/userpoll"
	"github.com/votehub/core/internal/modules/polling/vote"
	"github.com/votehub/core/internal/modules/reputation/profile"
	"github.com/votehub/core/internal/modules/reputation/psi"
	"github.com/votehub/core/internal/pkg/response"
)

func (a *App) registerRoutes(s *services) {
	a.router.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	a.router.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })
	a.router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	rdb := a.rawRedis()
	api := a.router.Group("/api/v1", middleware.OptionalAuth(), middleware.RateLimit(rdb, a.logger))

	authMW := middleware.Auth()
	adminMW := []gin.HandlerFunc{authMW, middleware.RequireAdmin()}

	category.NewHandler(s.category).RegisterRoutes(api, adminMW...)
	pollconfig.NewHandler(s.pollConfig).RegisterRoutes(api, adminMW...)
	poll.NewHandler(s.poll).RegisterRoutes(api, adminMW...)
	userpoll.NewHandler(s.userPoll).RegisterRoutes(api, authMW)
	invite.NewHandler(s.invites).RegisterRoutes(api, authMW, adminMW...)
	vote.NewHandler(s.vote).RegisterRoutes(api, middleware.Idempotence(rdb))
	profile.NewHandler(s.profile).RegisterRoutes(api, authMW, adminMW...)
	psi.NewHandler(s.psi).RegisterRoutes(api, authMW)

	jobs := api.Group("/jobs", adminMW...)
	jobs.GET("", func(c *gin.Context) { response.OK(c, a.sched.List()) })
	jobs.POST("/:name/run", a.runJob)
}

func (a *App) runJob(c *gin.Context) {
	name := c.Param("name")
	if _, ok := a.sched.Get(name); !ok {
		response.NotFound(c)
		return
	}
	if err := a.sched.Run(c.Request.Context(), name); err != nil {
		response.InternalError(c, err)
		return
	}
	info, _ := a.sched.Get(name)
	response.OK(c, info)
}
