package models

import (
	"strings"
	"time"

	"github.com/freelancehub/app-indexer/internal/utils"
)

// ProfileCompletionThreshold is the minimum completion percentage for a
// profile to be listed in search. Set once at startup from configuration.
var ProfileCompletionThreshold = 80

// ProfessionalProfile is a freelancer's public profile
type ProfessionalProfile struct {
	ID                   string     `bson:"_id" json:"id" gorm:"primaryKey;size:36"`
	UserID               string     `bson:"user_id" json:"user_id" gorm:"size:36;index"`
	Headline             string     `bson:"headline" json:"headline"`
	Bio                  string     `bson:"bio" json:"bio"`
	City                 string     `bson:"city" json:"city"`
	Country              string     `bson:"country" json:"country" gorm:"size:2"`
	Phone                string     `bson:"phone" json:"phone"`
	Skills               []string   `bson:"skills" json:"skills" gorm:"serializer:json;type:text"`
	HourlyRate           float64    `bson:"hourly_rate" json:"hourly_rate"`
	CompletionPercentage int        `bson:"completion_percentage" json:"completion_percentage"`
	CreatedAt            time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt            *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty" gorm:"index"`
}

func (ProfessionalProfile) TableName() string { return string(EntityProfessionalProfile) }

func (p *ProfessionalProfile) EntityType() EntityType { return EntityProfessionalProfile }

func (p *ProfessionalProfile) SearchKey() string { return p.ID }

func (p *ProfessionalProfile) ShouldBeSearchable() bool {
	return p.DeletedAt == nil && p.CompletionPercentage >= ProfileCompletionThreshold
}

func (p *ProfessionalProfile) SearchDocument() map[string]interface{} {
	doc := map[string]interface{}{
		"id":                    p.ID,
		"user_id":               p.UserID,
		"headline":              p.Headline,
		"bio":                   p.Bio,
		"city":                  p.City,
		"country":               strings.ToUpper(p.Country),
		"skills":                nonNilStrings(p.Skills),
		"hourly_rate":           p.HourlyRate,
		"completion_percentage": p.CompletionPercentage,
		"updated_at":            p.UpdatedAt,
	}
	if phone, err := utils.NormalizePhone(p.Phone, p.Country); err == nil {
		doc["phone"] = phone
	}
	return doc
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
