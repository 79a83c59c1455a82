package poll

import (
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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW ...gin.HandlerFunc) {
	polls := rg.Group("/polls")
	polls.GET("", h.list)
	polls.GET("/:id", h.get)

	admin := polls.Group("", adminMW...)
	admin.POST("", h.create)
	admin.PATCH("/:id", h.update)
	admin.POST("/:id/publish", h.publish)
	admin.POST("/:id/close", h.close)
}

func (h *Handler) list(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	polls, pag, err := h.svc.List(c.Request.Context(), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, polls, pag)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreatePollDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var dto UpdatePollDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), id, &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) publish(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Publish(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) close(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Close(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}
