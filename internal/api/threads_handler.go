package api

import (
	"errors"
	"net/http"

	"github.com/radutopala/threads/internal/response"
	"github.com/radutopala/threads/internal/thread"
)

type addPostRequest struct {
	Post        string  `json:"post"`
	ThreadTitle *string `json:"thread_title"`
}

// handleActions runs the actions named in the body in order, then reconciles
// their results into one response.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	var req thread.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	c, ok := s.open(w, r)
	if !ok {
		return
	}
	for _, action := range req.Actions {
		c.Run(r.Context(), action, req)
	}
	s.reconcile(w, c)
}

func (s *Server) handleAddPost(w http.ResponseWriter, r *http.Request) {
	var req addPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, ok := s.open(w, r)
	if !ok {
		return
	}
	c.AddPost(r.Context(), req.Post, req.ThreadTitle)
	s.reconcile(w, c)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	c, ok := s.open(w, r)
	if !ok {
		return
	}
	c.DeletePost(r.Context(), thread.ParseID(r.PathValue("post_id")))
	s.reconcile(w, c)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	c, ok := s.open(w, r)
	if !ok {
		return
	}
	c.DeleteThread(r.Context(), thread.ParseID(r.PathValue("thread_id")))
	s.reconcile(w, c)
}

func (s *Server) handleViewThread(w http.ResponseWriter, r *http.Request) {
	c, ok := s.open(w, r)
	if !ok {
		return
	}

	view, err := c.View(r.Context())
	switch {
	case errors.Is(err, thread.ErrPermissionDenied):
		response.Write(w, response.Payload{response.StatusKey: http.StatusForbidden, "errors": "Permission denied"})
	case err != nil:
		s.logger.Error("viewing thread", "subject", r.PathValue("subject"), "error", err)
		response.Write(w, response.Payload{response.StatusKey: http.StatusInternalServerError, "errors": "internal error"})
	case view == nil:
		response.Write(w, response.New())
	default:
		writeJSON(w, http.StatusOK, view)
	}
}
