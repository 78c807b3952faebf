package models

import "errors"

var (
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrEmptyPayload      = errors.New("empty entity payload")
)
