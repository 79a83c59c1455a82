package invite

import (
	"github.com/gin-gonic/gin"
	"github.com/votehub/core/internal/middleware"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/response"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type issueDTO struct {
	Mobiles []string `json:"mobiles" binding:"required,min=1"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, adminMW ...gin.HandlerFunc) {
	invites := rg.Group("/invites")
	invites.GET("/:token", h.validate)
	invites.POST("/:token/accept", authMW, h.accept)
	invites.POST("/:token/reject", h.reject)

	admin := rg.Group("/polls/:id/invites", adminMW...)
	admin.GET("", h.listForPoll)
	admin.POST("", h.issue)
}

func (h *Handler) validate(c *gin.Context) {
	inv, err := h.ledger.Validate(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"valid": true, "poll_kind": inv.PollKind, "poll_id": inv.PollID, "status": inv.Status})
}

func (h *Handler) accept(c *gin.Context) {
	inv, err := h.ledger.Accept(c.Request.Context(), c.Param("token"), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, inv)
}

func (h *Handler) reject(c *gin.Context) {
	inv, err := h.ledger.Reject(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, inv)
}

func (h *Handler) issue(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var dto issueDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.ledger.IssueForPoll(c.Request.Context(), id, middleware.CurrentUserID(c), dto.Mobiles)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func (h *Handler) listForPoll(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	invites, err := h.ledger.ListForPoll(c.Request.Context(), models.PollKindPoll, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, invites)
}
