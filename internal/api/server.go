// Package api exposes the offer platform over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"seo-offers/internal/common/auth"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/document"
	"seo-offers/internal/models"
	"seo-offers/internal/notify"
	"seo-offers/internal/search"
	"seo-offers/internal/submission"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

type Accounts interface {
	SignUp(ctx context.Context, email, password string) (*auth.Session, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
}

type Wizard interface {
	Start(ctx context.Context, owner models.User) (*models.WizardState, error)
	Get(ctx context.Context, owner models.User, sessionID string) (*models.WizardState, error)
	SubmitURL(ctx context.Context, owner models.User, sessionID, url string) (*models.WizardState, error)
	Next(ctx context.Context, owner models.User, sessionID string) (*models.WizardState, error)
	Back(ctx context.Context, owner models.User, sessionID string) (*models.WizardState, error)
	ToggleKeyword(ctx context.Context, owner models.User, sessionID, keywordID string) (*models.WizardState, error)
	SelectPackage(ctx context.Context, owner models.User, sessionID, tier string) (*models.WizardState, error)
	SetContact(ctx context.Context, owner models.User, sessionID, email, phone, message string) (*models.WizardState, error)
	Submit(ctx context.Context, owner models.User, sessionID, token string) (*models.WizardState, error)
}

type Submissions interface {
	Create(ctx context.Context, token string, req submission.Request) (models.SubmissionResult, error)
}

type Store interface {
	ListProjects(ctx context.Context, ownerID string) ([]models.Project, error)
	GetProject(ctx context.Context, id string) (models.Project, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error)
	ListOffers(ctx context.Context, filter models.OfferFilter) ([]models.OfferWithProject, error)
	GetOffer(ctx context.Context, id string) (models.OfferWithProject, error)
	UpdateOfferStatus(ctx context.Context, id string, status models.OfferStatus, notes *string) error
	Stats(ctx context.Context) (models.OfferStats, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, status models.OfferStatus, limit int) (search.Result, error)
	UpdateStatus(ctx context.Context, offerID string, status models.OfferStatus) error
}

type Mailer interface {
	SendTyped(ctx context.Context, t notify.EmailType, to, domain, pkg string) (string, error)
}

type Documents interface {
	HTML(data document.OfferData) ([]byte, error)
	PDF(ctx context.Context, data document.OfferData) ([]byte, string, error)
}

// Deps are the collaborators behind the routes. Search and Ready entries
// are optional.
type Deps struct {
	Auth        Authenticator
	Accounts    Accounts
	Wizard      Wizard
	Submissions Submissions
	Store       Store
	Search      Searcher
	Mailer      Mailer
	Documents   Documents
	Ready       map[string]func(context.Context) error
	StaffRoles  []string
}

// Options tune the server surface.
type Options struct {
	// AuthRate limits sign-up and sign-in attempts per client address.
	AuthRate  rate.Limit
	AuthBurst int
	Now       func() time.Time
}

type Server struct {
	deps    Deps
	logger  logger.Logger
	limiter *clientLimiter
	now     func() time.Time
}

func NewServer(deps Deps, opts Options, log logger.Logger) *Server {
	if opts.AuthRate == 0 {
		opts.AuthRate = rate.Every(6 * time.Second)
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 5
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Server{
		deps:    deps,
		logger:  logger.Component(log, "api"),
		limiter: newClientLimiter(opts.AuthRate, opts.AuthBurst),
		now:     opts.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.accessLog)
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)
	r.Use(s.instrument)

	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/packages", s.handlePackages)

		r.Route("/auth", func(r chi.Router) {
			r.With(s.rateLimit).Post("/signup", s.handleSignUp)
			r.With(s.rateLimit).Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/user", s.handleCurrentUser)

			r.Get("/projects", s.handleListProjects)
			r.Post("/projects", s.handleCreateProject)
			r.Get("/projects/{id}", s.handleGetProject)
			r.Put("/projects/{id}", s.handleUpdateProject)

			r.Post("/wizard", s.handleWizardStart)
			r.Route("/wizard/{id}", func(r chi.Router) {
				r.Get("/", s.handleWizardGet)
				r.Post("/url", s.handleWizardURL)
				r.Post("/next", s.handleWizardNext)
				r.Post("/back", s.handleWizardBack)
				r.Post("/keywords/{kw}", s.handleWizardToggleKeyword)
				r.Post("/package", s.handleWizardPackage)
				r.Post("/contact", s.handleWizardContact)
				r.Post("/submit", s.handleWizardSubmit)
			})

			r.Post("/send-email", s.handleSendEmail)
			r.Post("/generate-pdf", s.handleGeneratePDF)

			r.Route("/admin/offers", func(r chi.Router) {
				r.Use(s.requireStaff)

				r.Get("/", s.handleAdminListOffers)
				r.Get("/stats", s.handleAdminStats)
				r.Get("/search", s.handleAdminSearch)
				r.Put("/{id}/status", s.handleAdminUpdateStatus)
				r.Post("/{id}/reminder", s.handleAdminReminder)
				r.Get("/{id}/document", s.handleAdminDocument)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.Ready))
	status := http.StatusOK
	for name, ping := range s.deps.Ready {
		if err := ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}
