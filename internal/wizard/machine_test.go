package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"seo-offers/internal/common/validation"
	"seo-offers/internal/inference"
	"seo-offers/internal/models"
	"seo-offers/internal/offer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, token string, state models.WizardState) (models.SubmissionResult, error) {
	args := m.Called(ctx, token, state)
	return args.Get(0).(models.SubmissionResult), args.Error(1)
}

type orphanError struct{ projectID string }

func (e *orphanError) Error() string             { return "offer insert failed" }
func (e *orphanError) OrphanedProjectID() string { return e.projectID }

// ==========================
// Helpers
// ==========================

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestMachine() *Machine {
	return NewMachine(inference.NewEngine(inference.WithSeed(7)), WithClock(func() time.Time { return fixedNow }))
}

func advanceToReview(t *testing.T, m *Machine, st *models.WizardState) {
	t.Helper()
	require.NoError(t, m.SubmitURL(st, "https://stockholm-stad.se"))
	require.NoError(t, m.Next(st))
	require.NoError(t, m.ToggleKeyword(st, "kw-0"))
	require.NoError(t, m.ToggleKeyword(st, "kw-3"))
	require.NoError(t, m.Next(st))
	require.NoError(t, m.SelectPackage(st, "pro"))
	require.NoError(t, m.Next(st))
	require.NoError(t, m.SetContact(st, "anna@example.se", "070-123 45 67", ""))
	require.Equal(t, StepReviewAndSubmit, st.Step)
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Message
}

// ==========================
// Tests
// ==========================

func TestMachine_New(t *testing.T) {
	st := newTestMachine().New("s1", "u1")

	assert.Equal(t, StepURLInput, st.Step)
	assert.Equal(t, "u1", st.OwnerID)
	assert.Empty(t, st.SelectedKeywordIDs)
	assert.Equal(t, fixedNow, st.CreatedAt)
}

func TestMachine_SubmitURLValidation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"empty", "", validation.MsgURLRequired},
		{"whitespace", "   ", validation.MsgURLRequired},
		{"no scheme", "example.se", validation.MsgURLScheme},
		{"ftp", "ftp://example.se", validation.MsgURLScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine()
			st := m.New("s1", "u1")

			err := m.SubmitURL(st, tt.url)
			assert.Equal(t, tt.want, validationMessage(t, err))
			assert.Equal(t, StepURLInput, st.Step)
			assert.Empty(t, st.Keywords)
		})
	}
}

func TestMachine_SubmitURLInfers(t *testing.T) {
	m := newTestMachine()
	st := m.New("s1", "u1")

	require.NoError(t, m.SubmitURL(st, "  https://example.se "))

	assert.Equal(t, StepAutoDetect, st.Step)
	assert.Equal(t, "https://example.se", st.URL)
	assert.Contains(t, inference.Industries, st.Industry)
	assert.NotEmpty(t, st.Cities)
	assert.True(t, st.CompetitorsPlaceholder)
	assert.Len(t, st.Keywords, inference.KeywordCount)
}

func TestMachine_NextGuards(t *testing.T) {
	m := newTestMachine()
	st := m.New("s1", "u1")

	assert.Equal(t, validation.MsgURLRequired, validationMessage(t, m.Next(st)))

	require.NoError(t, m.SubmitURL(st, "https://example.se"))
	require.NoError(t, m.Next(st))
	assert.Equal(t, StepKeywordSelection, st.Step)

	assert.Equal(t, MsgSelectKeyword, validationMessage(t, m.Next(st)))
	assert.Equal(t, StepKeywordSelection, st.Step)

	require.NoError(t, m.ToggleKeyword(st, "kw-1"))
	require.NoError(t, m.Next(st))
	assert.Equal(t, MsgSelectPackage, validationMessage(t, m.Next(st)))

	require.NoError(t, m.SelectPackage(st, " ELITE "))
	assert.Equal(t, models.PackageElite, st.SelectedPackage)
	require.NoError(t, m.Next(st))
	assert.Equal(t, StepReviewAndSubmit, st.Step)

	var se *StepError
	assert.ErrorAs(t, m.Next(st), &se)
}

func TestMachine_ToggleKeyword(t *testing.T) {
	m := newTestMachine()
	st := m.New("s1", "u1")
	require.NoError(t, m.SubmitURL(st, "https://example.se"))

	var se *StepError
	assert.ErrorAs(t, m.ToggleKeyword(st, "kw-0"), &se)

	require.NoError(t, m.Next(st))
	require.NoError(t, m.ToggleKeyword(st, "kw-4"))
	require.NoError(t, m.ToggleKeyword(st, "kw-2"))
	assert.Equal(t, []string{"kw-4", "kw-2"}, st.SelectedKeywordIDs)

	selected := st.SelectedKeywords()
	require.Len(t, selected, 2)
	assert.Equal(t, "kw-2", selected[0].ID)

	require.NoError(t, m.ToggleKeyword(st, "kw-4"))
	assert.Equal(t, []string{"kw-2"}, st.SelectedKeywordIDs)

	assert.Equal(t, MsgUnknownKeyword, validationMessage(t, m.ToggleKeyword(st, "kw-99")))
}

func TestMachine_SelectPackageRejectsUnknown(t *testing.T) {
	m := newTestMachine()
	st := m.New("s1", "u1")
	st.Step = StepPackageSelection

	assert.Equal(t, MsgInvalidPackage, validationMessage(t, m.SelectPackage(st, "gold")))
	assert.Empty(t, st.SelectedPackage)
}

func TestMachine_BackKeepsData(t *testing.T) {
	m := newTestMachine()
	st := m.New("s1", "u1")
	advanceToReview(t, m, st)
	keywords := st.Keywords

	for want := StepPackageSelection; want >= StepURLInput; want-- {
		require.NoError(t, m.Back(st))
		assert.Equal(t, want, st.Step)
	}

	var se *StepError
	assert.ErrorAs(t, m.Back(st), &se)

	// same URL: no re-inference, selection survives
	require.NoError(t, m.SubmitURL(st, "https://stockholm-stad.se"))
	assert.Equal(t, keywords, st.Keywords)
	assert.Equal(t, []string{"kw-0", "kw-3"}, st.SelectedKeywordIDs)
	assert.Equal(t, models.PackagePro, st.SelectedPackage)
	assert.Equal(t, "anna@example.se", st.CustomerEmail)

	// new URL: fresh keywords, selection cleared
	require.NoError(t, m.Back(st))
	require.NoError(t, m.SubmitURL(st, "https://frisor-goteborg.se"))
	assert.Empty(t, st.SelectedKeywordIDs)
	assert.Equal(t, "https://frisor-goteborg.se", st.InferredURL)
}

func TestMachine_SetContact(t *testing.T) {
	m := newTestMachine()
	st := m.New("s1", "u1")
	st.Step = StepReviewAndSubmit

	tests := []struct {
		name         string
		email, phone string
		want         string
	}{
		{"missing both", "", "", validation.MsgContactRequired},
		{"missing phone", "anna@example.se", " ", validation.MsgContactRequired},
		{"bad email", "anna", "0701234567", validation.MsgEmailInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.SetContact(st, tt.email, tt.phone, "hej")
			assert.Equal(t, tt.want, validationMessage(t, err))
		})
	}

	require.NoError(t, m.SetContact(st, "anna@example.se", "0701234567", ""))
	assert.Equal(t, "0701234567", st.CustomerPhone)
	assert.Empty(t, st.CustomerMessage)
}

func TestMachine_SubmitSuccess(t *testing.T) {
	m := NewMachine(inference.NewEngine(inference.WithSeed(7)),
		WithClock(func() time.Time { return fixedNow }),
		WithRedirect("/dashboard", 3*time.Second))
	st := m.New("s1", "u1")
	advanceToReview(t, m, st)

	want, err := offer.Calculate(models.PackagePro, st.SelectedKeywords())
	require.NoError(t, err)

	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, "tok", mock.MatchedBy(func(s models.WizardState) bool {
		return s.Busy && s.Estimate != nil && *s.Estimate == want
	})).Return(models.SubmissionResult{ProjectID: "p1", OfferID: "o1", NotificationQueued: true}, nil)

	require.NoError(t, m.Submit(t.Context(), st, submitter, "tok"))

	assert.Equal(t, StepConfirmation, st.Step)
	assert.False(t, st.Busy)
	assert.Equal(t, "p1", st.ProjectID)
	require.NotNil(t, st.Confirmation)
	assert.Equal(t, models.Confirmation{
		ProjectID:          "p1",
		RedirectTo:         "/dashboard",
		RedirectAfterMS:    3000,
		NotificationQueued: true,
	}, *st.Confirmation)
	submitter.AssertExpectations(t)

	var se *StepError
	assert.ErrorAs(t, m.Back(st), &se)
	assert.ErrorAs(t, m.Next(st), &se)
}

func TestMachine_SubmitFailureStaysOnReview(t *testing.T) {
	m := newTestMachine()
	st := m.New("s1", "u1")
	advanceToReview(t, m, st)

	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, "tok", mock.Anything).
		Return(models.SubmissionResult{}, errors.New("database unavailable"))

	err := m.Submit(t.Context(), st, submitter, "tok")
	require.Error(t, err)

	assert.Equal(t, StepReviewAndSubmit, st.Step)
	assert.False(t, st.Busy)
	assert.Contains(t, st.LastError, "database unavailable")
	assert.Equal(t, "anna@example.se", st.CustomerEmail)
	assert.Len(t, st.SelectedKeywordIDs, 2)
	assert.Nil(t, st.Confirmation)
}

func TestMachine_SubmitPartialWriteKeepsProjectID(t *testing.T) {
	m := newTestMachine()
	st := m.New("s1", "u1")
	advanceToReview(t, m, st)

	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, "tok", mock.Anything).
		Return(models.SubmissionResult{}, &orphanError{projectID: "p-orphan"})

	require.Error(t, m.Submit(t.Context(), st, submitter, "tok"))
	assert.Equal(t, "p-orphan", st.ProjectID)
	assert.Equal(t, StepReviewAndSubmit, st.Step)
}

func TestMachine_SubmitWhileBusy(t *testing.T) {
	m := newTestMachine()
	st := m.New("s1", "u1")
	advanceToReview(t, m, st)
	st.Busy = true

	submitter := new(MockSubmitter)
	err := m.Submit(t.Context(), st, submitter, "tok")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}
