package models

// Role is the coarse authorization role carried in access tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// UserModel is the local projection of an authenticated account.
type UserModel struct {
	Base
	Name       string `json:"name"`
	Mobile     string `json:"mobile"      gorm:"size:32;index"`
	Role       Role   `json:"role"        gorm:"type:varchar(16);not null;default:USER"`
	IsVerified bool   `json:"is_verified" gorm:"not null;default:false"`
}

func (UserModel) TableName() string { return "users" }
