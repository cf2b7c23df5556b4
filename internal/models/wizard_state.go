// internal/models/wizard_state.go
package models

import "time"

// WizardStep is a position in the project-creation flow, 1 through 6.
type WizardStep int

// WizardState is the accumulated form state of one project-creation session.
type WizardState struct {
	SessionID              string        `json:"session_id"`
	OwnerID                string        `json:"owner_id"`
	Step                   WizardStep    `json:"step"`
	URL                    string        `json:"url"`
	InferredURL            string        `json:"inferred_url,omitempty"`
	Industry               string        `json:"industry,omitempty"`
	Cities                 []string      `json:"cities"`
	Competitors            []string      `json:"competitors"`
	CompetitorsPlaceholder bool          `json:"competitors_placeholder"`
	Keywords               []Keyword     `json:"keywords"`
	SelectedKeywordIDs     []string      `json:"selected_keyword_ids"`
	SelectedPackage        PackageTier   `json:"selected_package,omitempty"`
	CustomerEmail          string        `json:"customer_email,omitempty"`
	CustomerPhone          string        `json:"customer_phone,omitempty"`
	CustomerMessage        string        `json:"customer_message,omitempty"`
	Busy                   bool          `json:"busy"`
	LastError              string        `json:"last_error,omitempty"`
	ProjectID              string        `json:"project_id,omitempty"`
	Estimate               *Estimate     `json:"estimate,omitempty"`
	Confirmation           *Confirmation `json:"confirmation,omitempty"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

// Confirmation tells the host where to navigate after the terminal step.
type Confirmation struct {
	ProjectID          string `json:"project_id"`
	RedirectTo         string `json:"redirect_to"`
	RedirectAfterMS    int    `json:"redirect_after_ms"`
	NotificationQueued bool   `json:"notification_queued"`
}

// IsSelected reports whether the keyword id is in the selection.
func (s *WizardState) IsSelected(id string) bool {
	for _, sel := range s.SelectedKeywordIDs {
		if sel == id {
			return true
		}
	}
	return false
}

// SelectedKeywords returns the selected keywords in generation order.
func (s *WizardState) SelectedKeywords() []Keyword {
	out := make([]Keyword, 0, len(s.SelectedKeywordIDs))
	for _, kw := range s.Keywords {
		if s.IsSelected(kw.ID) {
			out = append(out, kw)
		}
	}
	return out
}

// SelectedKeywordTexts returns the text of each selected keyword.
func (s *WizardState) SelectedKeywordTexts() []string {
	selected := s.SelectedKeywords()
	out := make([]string, len(selected))
	for i, kw := range selected {
		out[i] = kw.Text
	}
	return out
}
