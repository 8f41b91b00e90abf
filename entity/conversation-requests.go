package entity

import (
	"net/http"

	"LeadDesk/internal/lib/validate"
)

type AIToggle struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (a *AIToggle) Bind(_ *http.Request) error {
	return validate.Struct(a)
}

type StatusChange struct {
	Status LeadStatus `json:"status" validate:"required"`
}

func (s *StatusChange) Bind(_ *http.Request) error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if !s.Status.Valid() {
		return ErrUnknownStatus
	}
	return nil
}
