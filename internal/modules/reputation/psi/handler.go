package psi

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/votehub/core/internal/middleware"
	"github.com/votehub/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/profiles/trending", h.trending)
	rg.GET("/profiles/:id/psi", h.score)
	rg.POST("/profiles/:id/psi", authMW, h.submit)
}

func (h *Handler) trending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultTrendingLimit)))
	entries, err := h.svc.ListTrending(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

func (h *Handler) score(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	score, err := h.svc.GetScore(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, score)
}

func (h *Handler) submit(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var ratings Ratings
	if err := c.ShouldBindJSON(&ratings); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	score, err := h.svc.SubmitVote(c.Request.Context(), middleware.CurrentUserID(c), id, ratings)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, score)
}
