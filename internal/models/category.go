package models

// CategoryDomain partitions otherwise identical category trees.
type CategoryDomain string

const (
	DomainPoll    CategoryDomain = "POLL"
	DomainProfile CategoryDomain = "PROFILE"
)

// CategoryStatus is the operator-controlled status of a category.
type CategoryStatus string

const (
	CategoryActive   CategoryStatus = "ACTIVE"
	CategoryDisabled CategoryStatus = "DISABLED"
)

// CategoryModel is a node in the two-level category tree. Parents carry the
// *Default fields; children carry nullable overrides.
type CategoryModel struct {
	Base
	Name     string         `json:"name"      gorm:"not null"`
	IsParent bool           `json:"is_parent" gorm:"not null;default:false"`
	Domain   CategoryDomain `json:"domain"    gorm:"type:varchar(16);index;not null"`
	Status   CategoryStatus `json:"status"    gorm:"type:varchar(16);not null;default:ACTIVE"`
	ParentID *uint64        `json:"parent_id" gorm:"index"`

	Claimable      Override `json:"claimable,omitzero"       gorm:"type:varchar(3)"`
	RequestAllowed Override `json:"request_allowed,omitzero" gorm:"type:varchar(3)"`
	AdminCurated   Override `json:"admin_curated,omitzero"   gorm:"type:varchar(3)"`

	ClaimableDefault      YesNo `json:"claimable_default,omitempty"       gorm:"type:varchar(3)"`
	RequestAllowedDefault YesNo `json:"request_allowed_default,omitempty" gorm:"type:varchar(3)"`
	AdminCuratedDefault   YesNo `json:"admin_curated_default,omitempty"   gorm:"type:varchar(3)"`

	Parent *CategoryModel `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
}

func (CategoryModel) TableName() string { return "categories" }

// Inherits reports whether any override field defers to the parent.
func (c *CategoryModel) Inherits() bool {
	return !c.Claimable.IsSet() || !c.RequestAllowed.IsSet() || !c.AdminCurated.IsSet()
}
