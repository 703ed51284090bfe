package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
	linksvc "github.com/dayvidcds/vigiae-remote-concierge/internal/services/links"
)

// decodeBody lê o JSON do corpo; corpo inválido vira erro de entrada.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Wrap(domain.CodeInvalidInput, "JSON inválido", err)
	}
	return nil
}

// parseDate aceita RFC 3339 ou apenas a data (AAAA-MM-DD, no fuso configurado).
func parseDate(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return time.Time{}, domain.Wrap(domain.CodeInvalidInput, "Data de validade dos visitantes inválida", err)
	}
	return t, nil
}

type createLinkRequest struct {
	VisitorsValidUntil string `json:"visitorsValidUntil"`
	AccessSchedule     string `json:"accessSchedule"`
	MaxVisitors        *int   `json:"maxVisitors"`
}

func (s *Server) createLinkHandler(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	validUntil, err := parseDate(req.VisitorsValidUntil, s.opts.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.links.Create(r.Context(), residentFrom(r.Context()), linksvc.CreateInput{
		VisitorsValidUntil: validUntil,
		AccessSchedule:     req.AccessSchedule,
		MaxVisitors:        req.MaxVisitors,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listLinksHandler(w http.ResponseWriter, r *http.Request) {
	links, err := s.links.ListByResident(r.Context(), residentFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) revokeLinkHandler(w http.ResponseWriter, r *http.Request) {
	ack, err := s.links.Revoke(r.Context(), mux.Vars(r)["id"], residentFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func (s *Server) listVisitorsHandler(w http.ResponseWriter, r *http.Request) {
	visitors, err := s.links.ListVisitors(r.Context(), mux.Vars(r)["id"], residentFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, visitors)
}

func (s *Server) publicLinkHandler(w http.ResponseWriter, r *http.Request) {
	view, err := s.links.PublicView(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) registerVisitorHandler(w http.ResponseWriter, r *http.Request) {
	var in linksvc.VisitorInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.links.RegisterVisitor(r.Context(), mux.Vars(r)["token"], in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
