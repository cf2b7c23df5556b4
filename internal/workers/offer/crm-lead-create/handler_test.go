package crmleadcreate

import (
	"context"
	stderrors "errors"
	"testing"

	"seo-offers/internal/common/config"
	apperrors "seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/common/zoho"
	"seo-offers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock CRM
// ==========================

type MockCRM struct {
	mock.Mock
}

func (m *MockCRM) SearchLeads(ctx context.Context, email string) ([]zoho.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]zoho.Lead), args.Error(1)
}

func (m *MockCRM) CreateLead(ctx context.Context, lead *zoho.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createTestInput() models.OfferSubmitted {
	return models.OfferSubmitted{
		OfferID:         "o-1",
		CustomerEmail:   "anna@example.se",
		CustomerPhone:   "070-123 45 67",
		CustomerMessage: "Ring efter lunch",
		Domain:          "https://www.ab-bygg.se/",
		Industry:        "Bygg",
		Cities:          []string{"Stockholm", "Uppsala"},
		Keywords:        []string{"bygg stockholm", "snickare uppsala"},
		Package:         models.PackagePro,
		Estimate:        models.Estimate{MonthlyPrice: 6000},
	}
}

func createTestHandler(t *testing.T, crm CRM) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{CRM: crm, LeadSource: "Wizard", Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

// ==========================
// Tests
// ==========================

func TestLeadFromEvent(t *testing.T) {
	lead := LeadFromEvent(createTestInput(), "Wizard")

	assert.Equal(t, "anna@example.se", lead.Email)
	assert.Equal(t, "ab-bygg.se", lead.Company)
	assert.Equal(t, "ab-bygg.se", lead.LastName)
	assert.Equal(t, "https://www.ab-bygg.se/", lead.Website)
	assert.Equal(t, "Wizard", lead.Source)
	assert.Contains(t, lead.Description, "Paket: PRO (6000 kr/mån)")
	assert.Contains(t, lead.Description, "Sökord: bygg stockholm, snickare uppsala")
	assert.Contains(t, lead.Description, "Meddelande: Ring efter lunch")
}

func TestExecute_CreatesLead(t *testing.T) {
	crm := new(MockCRM)
	crm.On("SearchLeads", mock.Anything, "anna@example.se").Return(nil, nil)
	crm.On("CreateLead", mock.Anything, mock.MatchedBy(func(l *zoho.Lead) bool {
		return l.Email == "anna@example.se" && l.Source == "Wizard"
	})).Return("lead-9", nil)

	out, err := createTestHandler(t, crm).Execute(t.Context(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"crmLeadCreated": true, "crmLeadId": "lead-9"}, out)
	crm.AssertExpectations(t)
}

func TestExecute_ReusesExistingLead(t *testing.T) {
	crm := new(MockCRM)
	crm.On("SearchLeads", mock.Anything, "anna@example.se").Return([]zoho.Lead{{ID: "lead-1"}}, nil)

	out, err := createTestHandler(t, crm).Execute(t.Context(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, "lead-1", out["crmLeadId"])
	assert.Equal(t, false, out["crmLeadCreated"])
	crm.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
}

func TestExecute_CRMErrorsAreRetryable(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		crm := new(MockCRM)
		crm.On("SearchLeads", mock.Anything, mock.Anything).Return(nil, stderrors.New("503"))

		_, err := createTestHandler(t, crm).Execute(t.Context(), createTestInput())
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCRMAPIError))
	})

	t.Run("create", func(t *testing.T) {
		crm := new(MockCRM)
		crm.On("SearchLeads", mock.Anything, mock.Anything).Return(nil, nil)
		crm.On("CreateLead", mock.Anything, mock.Anything).Return("", stderrors.New("lead creation failed: DUPLICATE_DATA"))

		_, err := createTestHandler(t, crm).Execute(t.Context(), createTestInput())
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCRMAPIError))
		assert.True(t, apperrors.IsRetryableErrorCode(apperrors.CodeOf(err)))
	})
}

func TestNewHandler_Defaults(t *testing.T) {
	app := &config.Config{}
	app.Integrations.Zoho.LeadSource = "Hemsida"

	h, err := NewHandler(HandlerOptions{AppConfig: app})
	require.NoError(t, err)
	assert.Equal(t, "Hemsida", h.leadSource)
	assert.True(t, h.IsEnabled())

	out, err := h.Execute(t.Context(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, false, out["crmLeadCreated"])
}
