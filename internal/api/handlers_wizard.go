package api

import (
	"context"
	"net/http"

	"seo-offers/internal/models"

	"github.com/go-chi/chi/v5"
)

// wizardResponse carries the state and, after a failed submit, the error.
// An orphaned project id is surfaced next to the error.
type wizardResponse struct {
	State     *models.WizardState `json:"state"`
	Error     string              `json:"error,omitempty"`
	Code      string              `json:"code,omitempty"`
	ProjectID string              `json:"project_id,omitempty"`
}

type wizardOp func(ctx context.Context, owner models.User, sessionID string) (*models.WizardState, error)

func (s *Server) runWizard(w http.ResponseWriter, r *http.Request, op wizardOp) {
	user, _ := UserFromContext(r.Context())
	st, err := op(r.Context(), user, chi.URLParam(r, "id"))
	s.writeWizard(w, r, http.StatusOK, st, err)
}

// writeWizard answers with the state when one is available, so step
// validation errors render inline with the rest of the wizard.
func (s *Server) writeWizard(w http.ResponseWriter, r *http.Request, okStatus int, st *models.WizardState, err error) {
	if err == nil {
		writeJSON(w, okStatus, wizardResponse{State: st})
		return
	}
	if st == nil {
		s.writeError(w, r, err)
		return
	}

	status, body := statusFor(err)
	s.logger.Debug("wizard operation rejected", map[string]interface{}{
		"sessionId": st.SessionID,
		"step":      st.Step,
		"code":      body.Code,
		"error":     err.Error(),
	})
	writeJSON(w, status, wizardResponse{State: st, Error: body.Error, Code: body.Code, ProjectID: body.ProjectID})
}

func (s *Server) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	st, err := s.deps.Wizard.Start(r.Context(), user)
	s.writeWizard(w, r, http.StatusCreated, st, err)
}

func (s *Server) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	s.runWizard(w, r, s.deps.Wizard.Get)
}

func (s *Server) handleWizardURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, wizardURLSchema(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.runWizard(w, r, func(ctx context.Context, owner models.User, id string) (*models.WizardState, error) {
		return s.deps.Wizard.SubmitURL(ctx, owner, id, req.URL)
	})
}

func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	s.runWizard(w, r, s.deps.Wizard.Next)
}

func (s *Server) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	s.runWizard(w, r, s.deps.Wizard.Back)
}

func (s *Server) handleWizardToggleKeyword(w http.ResponseWriter, r *http.Request) {
	kw := chi.URLParam(r, "kw")
	s.runWizard(w, r, func(ctx context.Context, owner models.User, id string) (*models.WizardState, error) {
		return s.deps.Wizard.ToggleKeyword(ctx, owner, id, kw)
	})
}

func (s *Server) handleWizardPackage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Package string `json:"package"`
	}
	if err := decodeJSON(r, wizardPackageSchema(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.runWizard(w, r, func(ctx context.Context, owner models.User, id string) (*models.WizardState, error) {
		return s.deps.Wizard.SelectPackage(ctx, owner, id, req.Package)
	})
}

func (s *Server) handleWizardContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r, wizardContactSchema(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.runWizard(w, r, func(ctx context.Context, owner models.User, id string) (*models.WizardState, error) {
		return s.deps.Wizard.SetContact(ctx, owner, id, req.Email, req.Phone, req.Message)
	})
}

func (s *Server) handleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	token := tokenFromContext(r.Context())
	s.runWizard(w, r, func(ctx context.Context, owner models.User, id string) (*models.WizardState, error) {
		return s.deps.Wizard.Submit(ctx, owner, id, token)
	})
}
