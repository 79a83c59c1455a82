package profile

type CreateProfileDTO struct {
	CategoryID uint64 `json:"category_id" binding:"required"`
	Name       string `json:"name"        binding:"required,max=191"`
	Slug       string `json:"slug"        binding:"omitempty,max=191"`
	Bio        string `json:"bio"`
}

type SubmitClaimDTO struct {
	SubmittedData map[string]interface{} `json:"submitted_data"`
	Documents     []string               `json:"documents"`
}

type SubmitRequestDTO struct {
	CategoryID    uint64                 `json:"category_id"    binding:"required"`
	RequestedName string                 `json:"requested_name" binding:"required,max=191"`
	SubmittedData map[string]interface{} `json:"submitted_data"`
	Documents     []string               `json:"documents"`
}

type ReviewDTO struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ListQuery struct {
	CategoryID uint64 `form:"category_id"`
	Status     string `form:"status"`
	Page       int    `form:"page"`
	Size       int    `form:"size"`
}
