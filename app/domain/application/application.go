package application

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the closed set of application pipeline states. Unknown values
// are parse errors, never silently defaulted.
type Status string

const (
	StatusApplied      Status = "applied"
	StatusInterviewing Status = "interviewing"
	StatusOffered      Status = "offered"
	StatusRejected     Status = "rejected"
	StatusAccepted     Status = "accepted"
	StatusWithdrawn    Status = "withdrawn"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusApplied, StatusInterviewing, StatusOffered, StatusRejected, StatusAccepted, StatusWithdrawn:
		return Status(s), nil
	}
	return "", fmt.Errorf("application: unknown status %q", s)
}

// Application is one tracked job application as the backend returns it.
// InterviewCount is embedded in the detail payload, which is why interview
// mutations invalidate the parent application entry as well.
type Application struct {
	ID             uint             `json:"id"`
	CompanyID      uint             `json:"company_id"`
	CompanyName    string           `json:"company_name"`
	Title          string           `json:"title"`
	Status         Status           `json:"status"`
	URL            string           `json:"url,omitempty"`
	Location       string           `json:"location,omitempty"`
	SalaryMin      *decimal.Decimal `json:"salary_min,omitempty"`
	SalaryMax      *decimal.Decimal `json:"salary_max,omitempty"`
	Favorite       bool             `json:"favorite"`
	InterviewCount int              `json:"interview_count"`
	AppliedAt      *time.Time       `json:"applied_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CreateInput is the application form schema. Status defaults to "applied"
// on the backend when omitted.
type CreateInput struct {
	CompanyName string           `json:"company_name" validate:"required,max=200"`
	Title       string           `json:"title" validate:"required,max=200"`
	Status      string           `json:"status,omitempty" validate:"omitempty,oneof=applied interviewing offered rejected accepted withdrawn"`
	URL         string           `json:"url,omitempty" validate:"omitempty,url"`
	Location    string           `json:"location,omitempty" validate:"max=200"`
	SalaryMin   *decimal.Decimal `json:"salary_min,omitempty"`
	SalaryMax   *decimal.Decimal `json:"salary_max,omitempty"`
}

type UpdateInput struct {
	Title     string           `json:"title" validate:"required,max=200"`
	Status    string           `json:"status" validate:"required,oneof=applied interviewing offered rejected accepted withdrawn"`
	URL       string           `json:"url,omitempty" validate:"omitempty,url"`
	Location  string           `json:"location,omitempty" validate:"max=200"`
	SalaryMin *decimal.Decimal `json:"salary_min,omitempty"`
	SalaryMax *decimal.Decimal `json:"salary_max,omitempty"`
}
