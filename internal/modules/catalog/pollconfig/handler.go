package pollconfig

import (
	"github.com/gin-gonic/gin"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW ...gin.HandlerFunc) {
	configs := rg.Group("/poll-configs", adminMW...)
	configs.GET("", h.list)
	configs.GET("/:id", h.get)
	configs.POST("", h.create)
	configs.PATCH("/:id", h.update)
	configs.POST("/:id/publish", h.publish)
	configs.POST("/:id/disable", h.disable)
}

func (h *Handler) list(c *gin.Context) {
	configs, err := h.svc.List(c.Request.Context(), models.PollConfigStatus(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, configs)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	cfg, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateConfigDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cfg, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cfg)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var dto UpdateConfigDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cfg, err := h.svc.Update(c.Request.Context(), id, &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

func (h *Handler) publish(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	cfg, err := h.svc.Publish(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

func (h *Handler) disable(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	cfg, err := h.svc.Disable(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}
