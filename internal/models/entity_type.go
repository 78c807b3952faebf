package models

import "strings"

// EntityType tags a searchable record kind. The value doubles as the
// collection/table name and as the search index suffix.
type EntityType string

const (
	EntityProfessionalProfile EntityType = "professional_profiles"
	EntityServiceOffer        EntityType = "service_offers"
	EntityAchievement         EntityType = "achievements"
)

// SearchableTypes lists every searchable entity type in reindex order
func SearchableTypes() []EntityType {
	return []EntityType{EntityProfessionalProfile, EntityServiceOffer, EntityAchievement}
}

var entityAliases = map[string]EntityType{
	"professional_profiles": EntityProfessionalProfile,
	"profiles":              EntityProfessionalProfile,
	"service_offers":        EntityServiceOffer,
	"offers":                EntityServiceOffer,
	"achievements":          EntityAchievement,
}

// ParseEntityType resolves a canonical name or operator alias
func ParseEntityType(name string) (EntityType, bool) {
	t, ok := entityAliases[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

func (t EntityType) String() string {
	return string(t)
}
