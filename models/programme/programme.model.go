package programme

import "gorm.io/gorm"

// Programme represents a multi-day guided journey (e.g. a 14-day fast)
type Programme struct {
	gorm.Model
	Title        string `json:"title"`
	Description  string `json:"description" gorm:"type:text"`
	Author       string `json:"author"`
	DurationDays int    `json:"duration_days" gorm:"not null;default:14"`
	HasFasting   bool   `json:"has_fasting" gorm:"default:false"`
	Status       string `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	ThumbnailURL string `json:"thumbnail_url"`
	IsPublished  bool   `json:"is_published" gorm:"default:false"`
	IsDeleted    bool   `gorm:"default:false"`
}

// ProgrammeDay holds the editorial content for one day of a programme.
// The progression engine treats it as opaque; only DayNumber matters for
// unlock decisions.
type ProgrammeDay struct {
	gorm.Model
	ProgrammeID      uint   `json:"programme_id" gorm:"index;not null;uniqueIndex:uidx_programme_day"`
	DayNumber        int    `json:"day_number" gorm:"not null;uniqueIndex:uidx_programme_day"`
	Title            string `json:"title"`
	Scripture        string `json:"scripture"`
	Devotional       string `json:"devotional" gorm:"type:text"`
	ReflectionPrompt string `json:"reflection_prompt" gorm:"type:text"`
	ActionPrompt     string `json:"action_prompt" gorm:"type:text"`
	OrderIndex       int    `json:"order_index" gorm:"default:0"`
	IsPublished      bool   `json:"is_published" gorm:"default:false"`
	IsDeleted        bool   `gorm:"default:false"`
}
