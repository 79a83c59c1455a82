package userpoll

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/user-polls/:id", h.get)

	authed := rg.Group("", authMW)
	authed.GET("/me/user-polls", h.listOwn)
	authed.POST("/user-polls", h.create)
	authed.POST("/user-polls/:id/end", h.end)
	authed.POST("/user-polls/:id/extend", h.extend)
	authed.POST("/user-polls/:id/self-invite", h.selfInvite)
	authed.GET("/user-polls/:id/invites", h.listInvites)
	authed.POST("/user-polls/:id/invites", h.bulkInvite)

	authed.GET("/invite-groups", h.listGroups)
	authed.POST("/invite-groups", h.createGroup)
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

func (h *Handler) listOwn(c *gin.Context) {
	polls, err := h.svc.ListOwn(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, polls)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateUserPollDTO
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

func (h *Handler) end(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.End(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) extend(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var dto ExtendDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Extend(c.Request.Context(), middleware.CurrentUserID(c), id, &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) selfInvite(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	inv, err := h.svc.SelfInvite(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"token": inv.Token, "status": inv.Status})
}

func (h *Handler) listInvites(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	invites, err := h.svc.ListInvites(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, invites)
}

func (h *Handler) bulkInvite(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var dto BulkInviteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.svc.BulkInvite(c.Request.Context(), middleware.CurrentUserID(c), id, &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func (h *Handler) listGroups(c *gin.Context) {
	groups, err := h.svc.ListGroups(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, groups)
}

func (h *Handler) createGroup(c *gin.Context) {
	var dto NewGroupDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	group, err := h.svc.CreateGroup(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}
