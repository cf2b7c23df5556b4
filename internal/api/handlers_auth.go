package api

import (
	"net/http"

	"seo-offers/internal/common/auth"
	"seo-offers/internal/offer"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message      string `json:"message"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

func newSessionResponse(msg string, s *auth.Session) sessionResponse {
	return sessionResponse{Message: msg, Token: s.AccessToken, RefreshToken: s.RefreshToken}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, signUpSchema(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.deps.Accounts.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse("User created successfully", session))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, loginSchema(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.deps.Accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse("Login successful", session))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, logoutSchema(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.deps.Accounts.SignOut(r.Context(), req.RefreshToken); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       user.ID,
		"email":    user.Email,
		"roles":    user.Roles,
		"is_staff": user.IsStaff(s.deps.StaffRoles),
	})
}

func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	type pkg struct {
		offer.Package
		Features []string `json:"features"`
	}
	catalog := offer.Catalog()
	out := make([]pkg, len(catalog))
	for i, p := range catalog {
		out[i] = pkg{Package: p, Features: p.Features()}
	}
	writeJSON(w, http.StatusOK, out)
}
