package profile

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, adminMW ...gin.HandlerFunc) {
	profiles := rg.Group("/profiles")
	profiles.GET("", h.list)
	profiles.GET("/:id", h.get)
	profiles.POST("/:id/claims", authMW, h.submitClaim)
	profiles.POST("", append(append([]gin.HandlerFunc{}, adminMW...), h.create)...)

	rg.POST("/profile-requests", authMW, h.submitRequest)

	admin := rg.Group("", adminMW...)
	admin.GET("/profile-claims", h.listClaims)
	admin.POST("/profile-claims/:id/approve", h.approveClaim)
	admin.POST("/profile-claims/:id/reject", h.rejectClaim)
	admin.GET("/profile-requests", h.listRequests)
	admin.POST("/profile-requests/:id/approve", h.approveRequest)
	admin.POST("/profile-requests/:id/reject", h.rejectRequest)
}

func (h *Handler) list(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	profiles, pag, err := h.svc.List(c.Request.Context(), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, profiles, pag)
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
	var dto CreateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

func (h *Handler) submitClaim(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var dto SubmitClaimDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	claim, err := h.svc.SubmitClaim(c.Request.Context(), middleware.CurrentUserID(c), id, &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, claim)
}

func (h *Handler) listClaims(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	claims, pag, err := h.svc.ListClaims(c.Request.Context(), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, claims, pag)
}

func (h *Handler) approveClaim(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	claim, err := h.svc.ApproveClaim(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, claim)
}

func (h *Handler) rejectClaim(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var dto ReviewDTO
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	claim, err := h.svc.RejectClaim(c.Request.Context(), middleware.CurrentUserID(c), id, dto.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, claim)
}

func (h *Handler) submitRequest(c *gin.Context) {
	var dto SubmitRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req, err := h.svc.SubmitRequest(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

func (h *Handler) listRequests(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	reqs, pag, err := h.svc.ListRequests(c.Request.Context(), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, reqs, pag)
}

func (h *Handler) approveRequest(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	req, p, err := h.svc.ApproveRequest(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"request": req, "profile": p})
}

func (h *Handler) rejectRequest(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var dto ReviewDTO
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	req, err := h.svc.RejectRequest(c.Request.Context(), middleware.CurrentUserID(c), id, dto.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req)
}
