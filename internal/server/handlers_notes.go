package server

import (
	"net/http"

	"sealnote/internal/api"
)

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpsertNote(w http.ResponseWriter, r *http.Request) {
	var req api.NoteUpsertRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	resp, err := s.service.Upsert(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.Delete(r.Context(), pathID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}
