// internal/models/project.go
package models

import "time"

type ProjectStatus string

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectSubmitted ProjectStatus = "submitted"
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectDraft, ProjectSubmitted, ProjectActive, ProjectPaused, ProjectCompleted:
		return true
	}
	return false
}

// Project is created once per successful submission and owned by the submitting user.
type Project struct {
	ID               string        `json:"id"`
	OwnerUserID      string        `json:"owner_user_id"`
	DomainURL        string        `json:"domain_url"`
	Industry         string        `json:"industry"`
	Cities           []string      `json:"cities"`
	SelectedKeywords []string      `json:"selected_keywords"`
	SelectedPackage  PackageTier   `json:"selected_package"`
	Status           ProjectStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ProjectPatch is a partial update. Fields left unset are not touched.
type ProjectPatch struct {
	DomainURL        Optional[string]        `json:"domain_url"`
	Industry         Optional[string]        `json:"industry"`
	Cities           Optional[[]string]      `json:"cities"`
	SelectedKeywords Optional[[]string]      `json:"selected_keywords"`
	SelectedPackage  Optional[PackageTier]   `json:"selected_package"`
	Status           Optional[ProjectStatus] `json:"status"`
}

// IsEmpty reports whether the patch would change nothing.
func (p ProjectPatch) IsEmpty() bool {
	return !p.DomainURL.Set && !p.Industry.Set && !p.Cities.Set &&
		!p.SelectedKeywords.Set && !p.SelectedPackage.Set && !p.Status.Set
}
