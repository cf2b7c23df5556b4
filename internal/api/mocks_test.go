package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"seo-offers/internal/common/auth"
	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/document"
	"seo-offers/internal/models"
	"seo-offers/internal/notify"
	"seo-offers/internal/search"
	"seo-offers/internal/submission"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes and Mocks
// ==========================

type fakeAuth map[string]models.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (models.User, error) {
	u, ok := f[token]
	if !ok {
		return models.User{}, errors.NewUnauthorizedError("token is not active")
	}
	return u, nil
}

type MockAccounts struct{ mock.Mock }

func (m *MockAccounts) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *MockAccounts) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *MockAccounts) SignOut(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

type MockWizard struct{ mock.Mock }

func stateResult(args mock.Arguments) (*models.WizardState, error) {
	st, _ := args.Get(0).(*models.WizardState)
	return st, args.Error(1)
}

func (m *MockWizard) Start(ctx context.Context, owner models.User) (*models.WizardState, error) {
	return stateResult(m.Called(ctx, owner))
}

func (m *MockWizard) Get(ctx context.Context, owner models.User, id string) (*models.WizardState, error) {
	return stateResult(m.Called(ctx, owner, id))
}

func (m *MockWizard) SubmitURL(ctx context.Context, owner models.User, id, url string) (*models.WizardState, error) {
	return stateResult(m.Called(ctx, owner, id, url))
}

func (m *MockWizard) Next(ctx context.Context, owner models.User, id string) (*models.WizardState, error) {
	return stateResult(m.Called(ctx, owner, id))
}

func (m *MockWizard) Back(ctx context.Context, owner models.User, id string) (*models.WizardState, error) {
	return stateResult(m.Called(ctx, owner, id))
}

func (m *MockWizard) ToggleKeyword(ctx context.Context, owner models.User, id, kw string) (*models.WizardState, error) {
	return stateResult(m.Called(ctx, owner, id, kw))
}

func (m *MockWizard) SelectPackage(ctx context.Context, owner models.User, id, tier string) (*models.WizardState, error) {
	return stateResult(m.Called(ctx, owner, id, tier))
}

func (m *MockWizard) SetContact(ctx context.Context, owner models.User, id, email, phone, message string) (*models.WizardState, error) {
	return stateResult(m.Called(ctx, owner, id, email, phone, message))
}

func (m *MockWizard) Submit(ctx context.Context, owner models.User, id, token string) (*models.WizardState, error) {
	return stateResult(m.Called(ctx, owner, id, token))
}

type MockSubmissions struct{ mock.Mock }

func (m *MockSubmissions) Create(ctx context.Context, token string, req submission.Request) (models.SubmissionResult, error) {
	args := m.Called(ctx, token, req)
	return args.Get(0).(models.SubmissionResult), args.Error(1)
}

type MockStore struct{ mock.Mock }

func (m *MockStore) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	args := m.Called(ctx, ownerID)
	p, _ := args.Get(0).([]models.Project)
	return p, args.Error(1)
}

func (m *MockStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Project), args.Error(1)
}

func (m *MockStore) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(models.Project), args.Error(1)
}

func (m *MockStore) ListOffers(ctx context.Context, filter models.OfferFilter) ([]models.OfferWithProject, error) {
	args := m.Called(ctx, filter)
	o, _ := args.Get(0).([]models.OfferWithProject)
	return o, args.Error(1)
}

func (m *MockStore) GetOffer(ctx context.Context, id string) (models.OfferWithProject, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.OfferWithProject), args.Error(1)
}

func (m *MockStore) UpdateOfferStatus(ctx context.Context, id string, status models.OfferStatus, notes *string) error {
	return m.Called(ctx, id, status, notes).Error(0)
}

func (m *MockStore) Stats(ctx context.Context) (models.OfferStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.OfferStats), args.Error(1)
}

type MockSearcher struct{ mock.Mock }

func (m *MockSearcher) Search(ctx context.Context, q string, status models.OfferStatus, limit int) (search.Result, error) {
	args := m.Called(ctx, q, status, limit)
	return args.Get(0).(search.Result), args.Error(1)
}

func (m *MockSearcher) UpdateStatus(ctx context.Context, id string, status models.OfferStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockMailer struct{ mock.Mock }

func (m *MockMailer) SendTyped(ctx context.Context, t notify.EmailType, to, domain, pkg string) (string, error) {
	args := m.Called(ctx, t, to, domain, pkg)
	return args.String(0), args.Error(1)
}

type MockDocuments struct{ mock.Mock }

func (m *MockDocuments) HTML(data document.OfferData) ([]byte, error) {
	args := m.Called(data)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockDocuments) PDF(ctx context.Context, data document.OfferData) ([]byte, string, error) {
	args := m.Called(ctx, data)
	b, _ := args.Get(0).([]byte)
	return b, args.String(1), args.Error(2)
}

// ==========================
// Test Harness
// ==========================

var (
	customer = models.User{ID: "user-1", Email: "anna@example.se"}
	other    = models.User{ID: "user-2", Email: "bo@example.se"}
	staff    = models.User{ID: "staff-1", Email: "staff@example.se", Roles: []string{"staff"}}
)

type harness struct {
	srv         *httptest.Server
	accounts    *MockAccounts
	wizard      *MockWizard
	submissions *MockSubmissions
	store       *MockStore
	search      *MockSearcher
	mailer      *MockMailer
	documents   *MockDocuments
}

func newHarness(t *testing.T, ready map[string]func(context.Context) error) *harness {
	t.Helper()
	h := &harness{
		accounts:    new(MockAccounts),
		wizard:      new(MockWizard),
		submissions: new(MockSubmissions),
		store:       new(MockStore),
		search:      new(MockSearcher),
		mailer:      new(MockMailer),
		documents:   new(MockDocuments),
	}

	server := NewServer(Deps{
		Auth:        fakeAuth{"tok-user": customer, "tok-other": other, "tok-staff": staff},
		Accounts:    h.accounts,
		Wizard:      h.wizard,
		Submissions: h.submissions,
		Store:       h.store,
		Search:      h.search,
		Mailer:      h.mailer,
		Documents:   h.documents,
		Ready:       ready,
		StaffRoles:  []string{"admin", "staff"},
	}, Options{AuthBurst: 2}, logger.NewTestLogger(t))

	h.srv = httptest.NewServer(server.Router())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, h.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
