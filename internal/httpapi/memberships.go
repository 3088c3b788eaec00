package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/roster/pkg/types"
)

type replaceMembersRequest struct {
	MemberIDs *[]string `json:"member_ids"`
}

// addMembership handles POST /groups/{groupId}/members/{memberId}.
func (s *Server) addMembership(w http.ResponseWriter, r *http.Request) {
	member, err := s.manager.AddMembership(r.Context(), chi.URLParam(r, "memberId"), chi.URLParam(r, "groupId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, member)
}

// listGroupMembers handles GET /groups/{groupId}/members.
func (s *Server) listGroupMembers(w http.ResponseWriter, r *http.Request) {
	roster, err := s.manager.ListMembers(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, roster)
}

// getMembership handles GET /groups/{groupId}/members/{memberId}.
func (s *Server) getMembership(w http.ResponseWriter, r *http.Request) {
	member, err := s.manager.GetMembership(r.Context(), chi.URLParam(r, "memberId"), chi.URLParam(r, "groupId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, member)
}

// replaceGroupMembers handles PUT /groups/{groupId}/members.
func (s *Server) replaceGroupMembers(w http.ResponseWriter, r *http.Request) {
	var req replaceMembersRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.MemberIDs == nil {
		s.respondError(w, r, types.NewInvalidInput("member_ids is required"))
		return
	}

	group, err := s.manager.ReplaceMembers(r.Context(), chi.URLParam(r, "groupId"), *req.MemberIDs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, group)
}

// removeMembership handles DELETE /groups/{groupId}/members/{memberId}.
func (s *Server) removeMembership(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.RemoveMembership(r.Context(), chi.URLParam(r, "memberId"), chi.URLParam(r, "groupId")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
