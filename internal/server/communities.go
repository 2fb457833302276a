package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/studyflow/internal/models"
)

func (s *Server) handleListCommunities(w http.ResponseWriter, r *http.Request) {
	viewer := currentUserID(r)
	communities := s.store.listCommunities()
	out := make([]communityView, 0, len(communities))
	for _, c := range communities {
		out = append(out, s.communityView(c, viewer))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCommunity(w http.ResponseWriter, r *http.Request) {
	c, ok := s.store.community(chi.URLParam(r, "id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Community not found")
		return
	}
	writeJSON(w, http.StatusOK, s.communityView(c, currentUserID(r)))
}

func (s *Server) handleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	var in models.CommunityInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	viewer := currentUserID(r)
	c, err := s.store.addCommunity(&community{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Tags:        in.Tags,
	}, viewer)
	if err != nil {
		writeDetail(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.communityView(c, viewer))
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	s.setMembership(w, r, true)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.setMembership(w, r, false)
}

func (s *Server) setMembership(w http.ResponseWriter, r *http.Request, member bool) {
	slug := chi.URLParam(r, "id")
	if !s.store.setMember(slug, currentUserID(r), member) {
		writeDetail(w, http.StatusNotFound, "Community not found")
		return
	}
	msg := "Joined community"
	if !member {
		msg = "Left community"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
