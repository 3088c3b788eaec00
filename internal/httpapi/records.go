package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/roster/internal/records"
	"github.com/mesh-intelligence/roster/pkg/types"
)

// memberRequest is the body of POST /members and PUT /members/{memberId}.
// birth_date accepts a calendar date or an RFC 3339 timestamp.
type memberRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	BirthDate string `json:"birth_date"`
}

func (req memberRequest) toMember() (*types.Member, error) {
	m := &types.Member{Username: req.Username, Email: req.Email}
	if req.BirthDate == "" {
		return m, nil
	}
	birth, err := records.ParseDate("birth_date", req.BirthDate)
	if err != nil {
		return nil, err
	}
	m.BirthDate = birth
	return m, nil
}

// groupRequest is the body of POST /groups and PUT /groups/{groupId}.
type groupRequest struct {
	Name        string `json:"name"`
	FoundedOn   string `json:"founded_on"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
}

func (req groupRequest) toGroup() *types.Group {
	return &types.Group{
		Name:        req.Name,
		FoundedOn:   req.FoundedOn,
		ImageURL:    req.ImageURL,
		Description: req.Description,
	}
}

func (s *Server) decodeMember(r *http.Request) (*types.Member, error) {
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	return req.toMember()
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.members.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, members)
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.decodeMember(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	created, err := s.members.Create(r.Context(), m)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) getMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.members.Get(r.Context(), chi.URLParam(r, "memberId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, m)
}

func (s *Server) updateMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.decodeMember(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	updated, err := s.members.Update(r.Context(), chi.URLParam(r, "memberId"), m)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.members.Delete(r.Context(), chi.URLParam(r, "memberId")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groups.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, groups)
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	created, err := s.groups.Create(r.Context(), req.toGroup())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.groups.Get(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, g)
}

func (s *Server) updateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	updated, err := s.groups.Update(r.Context(), chi.URLParam(r, "groupId"), req.toGroup())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.Delete(r.Context(), chi.URLParam(r, "groupId")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
