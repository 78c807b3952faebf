package models

import (
	"time"

	"gorm.io/datatypes"
)

// Offer statuses
const (
	OfferStatusDraft      = "draft"
	OfferStatusOpen       = "open"
	OfferStatusInProgress = "in_progress"
	OfferStatusClosed     = "closed"
	OfferStatusCancelled  = "cancelled"
)

// ServiceOffer is a job posted by a client
type ServiceOffer struct {
	ID          string            `bson:"_id" json:"id" gorm:"primaryKey;size:36"`
	ClientID    string            `bson:"client_id" json:"client_id" gorm:"size:36;index"`
	Title       string            `bson:"title" json:"title"`
	Description string            `bson:"description" json:"description"`
	Category    string            `bson:"category" json:"category" gorm:"index"`
	Skills      []string          `bson:"skills" json:"skills" gorm:"serializer:json;type:text"`
	Budget      float64           `bson:"budget" json:"budget"`
	Status      string            `bson:"status" json:"status" gorm:"size:20;index"`
	IsPrivate   bool              `bson:"is_private" json:"is_private"`
	Attributes  datatypes.JSONMap `bson:"attributes,omitempty" json:"attributes,omitempty"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time        `bson:"deleted_at,omitempty" json:"deleted_at,omitempty" gorm:"index"`
}

func (ServiceOffer) TableName() string { return string(EntityServiceOffer) }

func (o *ServiceOffer) EntityType() EntityType { return EntityServiceOffer }

func (o *ServiceOffer) SearchKey() string { return o.ID }

// ShouldBeSearchable is true only for open, public, live offers
func (o *ServiceOffer) ShouldBeSearchable() bool {
	return o.DeletedAt == nil && !o.IsPrivate && o.Status == OfferStatusOpen
}

func (o *ServiceOffer) SearchDocument() map[string]interface{} {
	doc := map[string]interface{}{
		"id":          o.ID,
		"client_id":   o.ClientID,
		"title":       o.Title,
		"description": o.Description,
		"category":    o.Category,
		"skills":      nonNilStrings(o.Skills),
		"budget":      o.Budget,
		"status":      o.Status,
		"created_at":  o.CreatedAt,
	}
	if len(o.Attributes) > 0 {
		doc["attributes"] = map[string]interface{}(o.Attributes)
	}
	return doc
}
