package api

import (
	"net/http"

	"seo-offers/internal/common/errors"
	"seo-offers/internal/models"
	"seo-offers/internal/submission"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	projects, err := s.deps.Store.ListProjects(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req submission.Request
	if err := decodeJSON(r, projectRequestSchema(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.Submissions.Create(r.Context(), tokenFromContext(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// loadOwnedProject hides projects of other users behind RESOURCE_NOT_FOUND
// unless the caller is staff.
func (s *Server) loadOwnedProject(r *http.Request) (models.Project, error) {
	id := chi.URLParam(r, "id")
	project, err := s.deps.Store.GetProject(r.Context(), id)
	if err != nil {
		return models.Project{}, err
	}

	user, _ := UserFromContext(r.Context())
	if project.OwnerUserID != user.ID && !user.IsStaff(s.deps.StaffRoles) {
		return models.Project{}, errors.NewResourceNotFoundError("project", "id: "+id)
	}
	return project, nil
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.loadOwnedProject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.loadOwnedProject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var patch models.ProjectPatch
	if err := decodeJSON(r, projectPatchSchema(), &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Project status follows the staff review of the offer.
	user, _ := UserFromContext(r.Context())
	if patch.Status.Set && !user.IsStaff(s.deps.StaffRoles) {
		s.writeError(w, r, errors.NewForbiddenError("only staff may change project status"))
		return
	}

	updated, err := s.deps.Store.UpdateProject(r.Context(), project.ID, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
