package vote

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/votehub/core/internal/middleware"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type castDTO struct {
	Response    json.RawMessage `json:"response"     binding:"required"`
	InviteToken string          `json:"invite_token"`
}

// RegisterRoutes mounts vote endpoints; voteMW runs before casting
// (optional auth, idempotence).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, voteMW ...gin.HandlerFunc) {
	rg.POST("/polls/:id/votes", chain(voteMW, h.cast(models.PollKindPoll))...)
	rg.POST("/user-polls/:id/votes", chain(voteMW, h.cast(models.PollKindUserPoll))...)
	rg.GET("/polls/:id/results", h.results(models.PollKindPoll))
	rg.GET("/user-polls/:id/results", h.results(models.PollKindUserPoll))
}

func chain(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(mw)+1)
	return append(append(handlers, mw...), h)
}

func (h *Handler) cast(kind models.PollKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := response.ParamID(c, "id")
		if !ok {
			return
		}
		var dto castDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		token := middleware.InviteToken(c)
		if token == "" {
			token = strings.TrimSpace(dto.InviteToken)
		}
		vote, err := h.svc.Cast(c.Request.Context(), &Ballot{
			PollKind:    kind,
			PollID:      id,
			Response:    dto.Response,
			UserID:      middleware.CurrentUserIDPtr(c),
			InviteToken: token,
		})
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, vote)
	}
}

func (h *Handler) results(kind models.PollKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := response.ParamID(c, "id")
		if !ok {
			return
		}
		tally, err := h.svc.Results(c.Request.Context(), kind, id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, tally)
	}
}
