package models

// Searchable is implemented by every record kind mirrored into the search index
type Searchable interface {
	EntityType() EntityType
	SearchKey() string
	// ShouldBeSearchable reports whether the record belongs in the index.
	// It must not perform I/O.
	ShouldBeSearchable() bool
	SearchDocument() map[string]interface{}
}

// NewEntity returns an empty record for the given type
func NewEntity(t EntityType) (Searchable, error) {
	switch t {
	case EntityProfessionalProfile:
		return &ProfessionalProfile{}, nil
	case EntityServiceOffer:
		return &ServiceOffer{}, nil
	case EntityAchievement:
		return &Achievement{}, nil
	default:
		return nil, ErrUnknownEntityType
	}
}
