package entity

import (
	"net/http"
	"strings"
	"time"

	"LeadDesk/internal/lib/validate"
)

const AgentStatusActive = "active"

type Agent struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization,omitempty"`
	IsActive       bool      `json:"is_active"`
	Status         string    `json:"status,omitempty"`
	LicenseNumber  string    `json:"license_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type NewAgent struct {
	Name           string `json:"name" validate:"required,max=120"`
	Specialization string `json:"specialization" validate:"max=120"`
	LicenseNumber  string `json:"license_number" validate:"max=40"`
}

func (a *NewAgent) Bind(_ *http.Request) error {
	a.Name = strings.TrimSpace(a.Name)
	a.Specialization = strings.TrimSpace(a.Specialization)
	return validate.Struct(a)
}

type SelectAgent struct {
	ID int64 `json:"id" validate:"required,min=1"`
}

func (s *SelectAgent) Bind(_ *http.Request) error {
	return validate.Struct(s)
}
