package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"seo-offers/internal/common/errors"
	"seo-offers/internal/document"
	"seo-offers/internal/models"
	"seo-offers/internal/notify"

	"github.com/go-chi/chi/v5"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type    string `json:"type"`
		To      string `json:"to"`
		Domain  string `json:"domain"`
		Package string `json:"package"`
	}
	if err := decodeJSON(r, sendEmailSchema(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	msgID, err := s.deps.Mailer.SendTyped(r.Context(), notify.ParseEmailType(req.Type), req.To, req.Domain, req.Package)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message_id": msgID})
}

func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	var data document.OfferData
	if err := decodeJSON(r, offerDataSchema(), &data); err != nil {
		s.writeError(w, r, err)
		return
	}
	if data.Date == "" {
		data.Date = s.now().Format(document.DateLayout)
	}
	s.writeDocument(w, r, data)
}

// writeDocument answers with HTML when ?format=html is given, PDF otherwise.
func (s *Server) writeDocument(w http.ResponseWriter, r *http.Request, data document.OfferData) {
	if strings.EqualFold(r.URL.Query().Get("format"), "html") {
		html, err := s.deps.Documents.HTML(data)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(html)
		return
	}

	pdf, filename, err := s.deps.Documents.PDF(r.Context(), data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func parseStatusFilter(raw string) (models.OfferStatus, error) {
	if raw == "" || raw == "all" {
		return "", nil
	}
	status := models.OfferStatus(strings.ToLower(raw))
	if !status.IsValid() {
		return "", errors.NewValidationError("status", "unknown offer status")
	}
	return status, nil
}

func (s *Server) handleAdminListOffers(w http.ResponseWriter, r *http.Request) {
	status, err := parseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	offers, err := s.deps.Store.ListOffers(r.Context(), models.OfferFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Status: status,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Store.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Search == nil {
		s.writeError(w, r, errors.NewIndexNotFoundError("offers"))
		return
	}

	q := r.URL.Query()
	status, err := parseStatusFilter(q.Get("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	limit := defaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n <= 0 {
			s.writeError(w, r, errors.NewValidationError("limit", "limit must be a positive integer"))
			return
		}
		limit = min(n, maxSearchLimit)
	}

	result, err := s.deps.Search.Search(r.Context(), strings.TrimSpace(q.Get("q")), status, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string  `json:"status"`
		Notes  *string `json:"notes"`
	}
	if err := decodeJSON(r, offerStatusSchema(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	status := models.OfferStatus(req.Status)
	if err := s.deps.Store.UpdateOfferStatus(r.Context(), id, status, req.Notes); err != nil {
		s.writeError(w, r, err)
		return
	}

	// The database is the source of truth; a stale index is only logged.
	if s.deps.Search != nil {
		if err := s.deps.Search.UpdateStatus(r.Context(), id, status); err != nil {
			s.logger.Warn("search index status update failed", map[string]interface{}{"offerId": id, "error": err.Error()})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id, "status": status})
}

func (s *Server) handleAdminReminder(w http.ResponseWriter, r *http.Request) {
	owp, err := s.deps.Store.GetOffer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	domain := ""
	if owp.Project != nil {
		domain = owp.Project.DomainURL
	}

	msgID, err := s.deps.Mailer.SendTyped(r.Context(), notify.EmailReminder, owp.CustomerEmail, domain, string(owp.Package))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message_id": msgID})
}

func (s *Server) handleAdminDocument(w http.ResponseWriter, r *http.Request) {
	owp, err := s.deps.Store.GetOffer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeDocument(w, r, document.FromOffer(owp, s.now()))
}
