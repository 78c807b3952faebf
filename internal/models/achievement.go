package models

import (
	"strings"
	"time"
)

// Achievement categories
const (
	AchievementCertification = "certification"
	AchievementAward         = "award"
	AchievementPortfolio     = "portfolio"
	AchievementEducation     = "education"
)

var achievementCategories = map[string]bool{
	AchievementCertification: true,
	AchievementAward:         true,
	AchievementPortfolio:     true,
	AchievementEducation:     true,
}

// Achievement is a credential or portfolio item attached to a profile
type Achievement struct {
	ID          string     `bson:"_id" json:"id" gorm:"primaryKey;size:36"`
	ProfileID   string     `bson:"profile_id" json:"profile_id" gorm:"size:36;index"`
	Title       string     `bson:"title" json:"title"`
	Category    string     `bson:"category" json:"category" gorm:"size:20"`
	Description string     `bson:"description" json:"description"`
	IssuedAt    *time.Time `bson:"issued_at,omitempty" json:"issued_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty" gorm:"index"`
}

func (Achievement) TableName() string { return string(EntityAchievement) }

func (a *Achievement) EntityType() EntityType { return EntityAchievement }

func (a *Achievement) SearchKey() string { return a.ID }

func (a *Achievement) ShouldBeSearchable() bool {
	return a.DeletedAt == nil && strings.TrimSpace(a.Title) != "" && achievementCategories[a.Category]
}

func (a *Achievement) SearchDocument() map[string]interface{} {
	doc := map[string]interface{}{
		"id":          a.ID,
		"profile_id":  a.ProfileID,
		"title":       strings.TrimSpace(a.Title),
		"category":    a.Category,
		"description": a.Description,
	}
	if a.IssuedAt != nil {
		doc["issued_at"] = *a.IssuedAt
	}
	return doc
}
