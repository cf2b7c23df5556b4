// Package wizard implements the six-step project creation flow and its
// Redis-backed sessions.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"seo-offers/internal/common/metrics"
	"seo-offers/internal/common/validation"
	"seo-offers/internal/inference"
	"seo-offers/internal/models"
	"seo-offers/internal/offer"
)

const (
	StepURLInput         models.WizardStep = 1
	StepAutoDetect       models.WizardStep = 2
	StepKeywordSelection models.WizardStep = 3
	StepPackageSelection models.WizardStep = 4
	StepReviewAndSubmit  models.WizardStep = 5
	StepConfirmation     models.WizardStep = 6
)

var stepNames = map[models.WizardStep]string{
	StepURLInput:         "url_input",
	StepAutoDetect:       "auto_detect",
	StepKeywordSelection: "keyword_selection",
	StepPackageSelection: "package_selection",
	StepReviewAndSubmit:  "review_and_submit",
	StepConfirmation:     "confirmation",
}

// StepName returns the snake_case name of a step.
func StepName(s models.WizardStep) string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Inferer produces auto-detect data for a URL.
type Inferer interface {
	Infer(url string) inference.Result
	GenerateKeywords(industry string) []models.Keyword
}

// Submitter persists a reviewed session. The submission gateway implements it.
type Submitter interface {
	Submit(ctx context.Context, token string, state models.WizardState) (models.SubmissionResult, error)
}

// Machine applies step transitions to a WizardState. It holds no session
// data itself and is safe for concurrent use.
type Machine struct {
	inferer       Inferer
	now           func() time.Time
	redirectTo    string
	redirectAfter time.Duration
}

type MachineOption func(*Machine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

// WithRedirect sets where the confirmation step sends the user and after how long.
func WithRedirect(to string, after time.Duration) MachineOption {
	return func(m *Machine) {
		m.redirectTo = to
		m.redirectAfter = after
	}
}

func NewMachine(inferer Inferer, opts ...MachineOption) *Machine {
	m := &Machine{
		inferer:       inferer,
		now:           time.Now,
		redirectTo:    "/dashboard",
		redirectAfter: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// New returns a fresh session at URLInput.
func (m *Machine) New(sessionID, ownerID string) *models.WizardState {
	now := m.now().UTC()
	return &models.WizardState{
		SessionID:          sessionID,
		OwnerID:            ownerID,
		Step:               StepURLInput,
		Cities:             []string{},
		Competitors:        []string{},
		Keywords:           []models.Keyword{},
		SelectedKeywordIDs: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// SubmitURL validates the URL and moves to AutoDetect. Inference runs only
// when the URL differs from the one already inferred, so stepping back and
// resubmitting keeps the keyword selection.
func (m *Machine) SubmitURL(st *models.WizardState, rawURL string) error {
	if st.Step != StepURLInput {
		return &StepError{Op: "submit_url", Step: st.Step}
	}

	url := strings.TrimSpace(rawURL)
	st.URL = url
	if err := validation.CheckURL(url); err != nil {
		m.touch(st)
		return invalid(StepURLInput, "url", err.Error())
	}

	if url != st.InferredURL {
		res := m.inferer.Infer(url)
		st.Industry = res.Industry
		st.Cities = res.Cities
		st.Competitors = res.Competitors
		st.CompetitorsPlaceholder = res.CompetitorsArePlaceholders
		st.Keywords = m.inferer.GenerateKeywords(res.Industry)
		st.SelectedKeywordIDs = []string{}
		st.Estimate = nil
		st.InferredURL = url
	}

	m.moveTo(st, StepAutoDetect)
	return nil
}

// Next advances one step if the current step's guard holds.
func (m *Machine) Next(st *models.WizardState) error {
	switch st.Step {
	case StepURLInput:
		if st.InferredURL == "" || st.URL != st.InferredURL {
			return invalid(StepURLInput, "url", validation.MsgURLRequired)
		}
	case StepAutoDetect:
	case StepKeywordSelection:
		if len(st.SelectedKeywordIDs) == 0 {
			return invalid(StepKeywordSelection, "selected_keyword_ids", MsgSelectKeyword)
		}
	case StepPackageSelection:
		if !st.SelectedPackage.IsValid() {
			return invalid(StepPackageSelection, "selected_package", MsgSelectPackage)
		}
	default:
		// review only leaves through Submit; confirmation is terminal
		return &StepError{Op: "next", Step: st.Step}
	}

	m.moveTo(st, st.Step+1)
	return nil
}

// Back moves one step back from AutoDetect through ReviewAndSubmit. Nothing is cleared.
func (m *Machine) Back(st *models.WizardState) error {
	if st.Step < StepAutoDetect || st.Step > StepReviewAndSubmit || st.Busy {
		return &StepError{Op: "back", Step: st.Step}
	}
	m.moveTo(st, st.Step-1)
	return nil
}

// ToggleKeyword adds or removes a generated keyword from the selection.
func (m *Machine) ToggleKeyword(st *models.WizardState, id string) error {
	if st.Step != StepKeywordSelection {
		return &StepError{Op: "toggle_keyword", Step: st.Step}
	}

	known := false
	for _, kw := range st.Keywords {
		if kw.ID == id {
			known = true
			break
		}
	}
	if !known {
		return invalid(StepKeywordSelection, "keyword_id", MsgUnknownKeyword)
	}

	if st.IsSelected(id) {
		kept := st.SelectedKeywordIDs[:0]
		for _, sel := range st.SelectedKeywordIDs {
			if sel != id {
				kept = append(kept, sel)
			}
		}
		st.SelectedKeywordIDs = kept
	} else {
		st.SelectedKeywordIDs = append(st.SelectedKeywordIDs, id)
	}

	st.Estimate = nil
	m.touch(st)
	return nil
}

// SelectPackage chooses a tier.
func (m *Machine) SelectPackage(st *models.WizardState, tier string) error {
	if st.Step != StepPackageSelection {
		return &StepError{Op: "select_package", Step: st.Step}
	}

	p, ok := models.ParsePackageTier(tier)
	if !ok {
		return invalid(StepPackageSelection, "selected_package", MsgInvalidPackage)
	}

	st.SelectedPackage = p
	st.Estimate = nil
	m.touch(st)
	return nil
}

// SetContact stores the contact fields, then validates them. The values are
// kept even when invalid so the form can be corrected in place.
func (m *Machine) SetContact(st *models.WizardState, email, phone, message string) error {
	if st.Step != StepReviewAndSubmit {
		return &StepError{Op: "set_contact", Step: st.Step}
	}

	st.CustomerEmail = strings.TrimSpace(email)
	st.CustomerPhone = strings.TrimSpace(phone)
	st.CustomerMessage = strings.TrimSpace(message)
	m.touch(st)

	if err := validation.CheckContact(st.CustomerEmail, st.CustomerPhone); err != nil {
		return invalid(StepReviewAndSubmit, "contact", err.Error())
	}
	return nil
}

// BeginSubmit checks the review step, computes the estimate once and marks
// the session busy. The estimate travels unchanged to persistence.
func (m *Machine) BeginSubmit(st *models.WizardState) error {
	if st.Step != StepReviewAndSubmit {
		return &StepError{Op: "submit", Step: st.Step}
	}
	if st.Busy {
		return ErrSubmissionInFlight
	}
	if err := validation.CheckContact(st.CustomerEmail, st.CustomerPhone); err != nil {
		return invalid(StepReviewAndSubmit, "contact", err.Error())
	}
	if !st.SelectedPackage.IsValid() {
		return invalid(StepReviewAndSubmit, "selected_package", MsgSelectPackage)
	}

	est, err := offer.Calculate(st.SelectedPackage, st.SelectedKeywords())
	if err != nil {
		return invalid(StepReviewAndSubmit, "selected_keyword_ids", MsgSelectKeyword)
	}

	st.Estimate = &est
	st.Busy = true
	st.LastError = ""
	m.touch(st)
	return nil
}

// FinishSubmit records the gateway outcome. Success moves to Confirmation;
// failure stays on review with the error and all entered data.
func (m *Machine) FinishSubmit(st *models.WizardState, res models.SubmissionResult, err error) {
	st.Busy = false

	if err != nil {
		st.LastError = submitErrorMessage(err)
		var pwe interface{ OrphanedProjectID() string }
		if errors.As(err, &pwe) {
			st.ProjectID = pwe.OrphanedProjectID()
		}
		m.touch(st)
		return
	}

	st.ProjectID = res.ProjectID
	st.LastError = ""
	st.Confirmation = &models.Confirmation{
		ProjectID:          res.ProjectID,
		RedirectTo:         m.redirectTo,
		RedirectAfterMS:    int(m.redirectAfter / time.Millisecond),
		NotificationQueued: res.NotificationQueued,
	}
	m.moveTo(st, StepConfirmation)
}

// Submit runs BeginSubmit, the submitter and FinishSubmit in one call. The
// returned error is the submitter's; the state already reflects it.
func (m *Machine) Submit(ctx context.Context, st *models.WizardState, submitter Submitter, token string) error {
	if err := m.BeginSubmit(st); err != nil {
		return err
	}

	res, err := submitter.Submit(ctx, token, *st)
	m.FinishSubmit(st, res, err)
	return err
}

func (m *Machine) moveTo(st *models.WizardState, to models.WizardStep) {
	metrics.WizardTransitions.WithLabelValues(StepName(st.Step), StepName(to)).Inc()
	st.Step = to
	m.touch(st)
}

func (m *Machine) touch(st *models.WizardState) {
	st.UpdatedAt = m.now().UTC()
}

func submitErrorMessage(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return MsgSubmissionFails
	}
	return fmt.Sprintf("%s: %s", MsgSubmissionFails, msg)
}
