// Package thread implements the discussion thread actions: adding and
// deleting posts, deleting a whole thread and viewing it.
package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/radutopala/threads/internal/auth"
	"github.com/radutopala/threads/internal/db"
	"github.com/radutopala/threads/internal/response"
)

// Action names, also used as the payload keys their results are recorded under.
const (
	ActionAddPost      = "add_post"
	ActionDeletePost   = "delete_post"
	ActionDeleteThread = "delete_thread"
)

// ErrPermissionDenied is returned when the session may not use threads.
var ErrPermissionDenied = errors.New("permission denied")

// Service opens per-request controllers over a store.
type Service struct {
	store  db.Store
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(store db.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Controller runs thread actions for one subject on behalf of one session and
// collects their results. It is not safe for concurrent use.
type Controller struct {
	svc     *Service
	subject string
	sess    auth.Session
	thread  *db.Thread
	payload response.Payload
}

// View is the thread record with its live posts.
type View struct {
	*db.Thread
	Posts []*db.Post `json:"posts"`
}

// Open loads the thread attached to subject, if there is one.
func (s *Service) Open(ctx context.Context, subject string, sess auth.Session) (*Controller, error) {
	c := &Controller{
		svc:     s,
		subject: subject,
		sess:    sess,
		payload: response.New(),
	}

	sub, err := s.store.GetSubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("looking up subject: %w", err)
	}
	if sub == nil || sub.ThreadID == 0 {
		return c, nil
	}

	t, err := s.store.GetThread(ctx, sub.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("loading thread: %w", err)
	}
	c.thread = t
	return c, nil
}

// Thread returns the loaded thread, or nil.
func (c *Controller) Thread() *db.Thread {
	return c.thread
}

// Payload returns the results recorded so far.
func (c *Controller) Payload() response.Payload {
	return c.payload
}

func (c *Controller) allowed() bool {
	return c.sess.LoggedIn() && c.sess.HasPermission(auth.PermUseThreads)
}

// Run dispatches the named action.
func (c *Controller) Run(ctx context.Context, action string, req Request) {
	switch action {
	case ActionAddPost:
		c.AddPost(ctx, req.Post, req.ThreadTitle)
	case ActionDeletePost:
		c.DeletePost(ctx, req.PostID)
	case ActionDeleteThread:
		c.DeleteThread(ctx, req.ThreadID)
	default:
		c.payload.Record(action, response.Result{"status": 400, "errors": "unknown action"})
	}
}

// AddPost adds a post to the subject's thread, creating and attaching the
// thread first when the subject has none. A thread attached by a concurrent
// request is reused.
func (c *Controller) AddPost(ctx context.Context, post string, title *string) {
	if !c.allowed() {
		c.deny(ActionAddPost)
		return
	}
	if post == "" || post == "0" {
		c.payload.Record(ActionAddPost, response.Result{"status": 400, "errors": "No post data set"})
		return
	}

	if c.thread == nil {
		var t string
		if title != nil {
			t = *title
		}
		thread, created, err := c.svc.store.EnsureSubjectThread(ctx, c.subject, t)
		if err != nil {
			c.fail(ActionAddPost, fmt.Errorf("creating thread: %w", err))
			return
		}
		c.thread = thread
		if created {
			c.svc.logger.Info("thread created", "subject", c.subject, "thread_id", thread.ID)
		}
	}

	p := &db.Post{
		ThreadID:   c.thread.ID,
		LanguageID: c.sess.LanguageID,
		OwnerID:    c.sess.UserID,
		Post:       post,
	}
	if err := c.svc.store.CreatePost(ctx, p); err != nil {
		c.fail(ActionAddPost, fmt.Errorf("creating post: %w", err))
		return
	}

	c.payload.Record(ActionAddPost, response.Result{"status": 200, "thread": c.thread, "post": p})
}

// DeletePost soft-deletes a post that belongs to the loaded thread.
func (c *Controller) DeletePost(ctx context.Context, postID ID) {
	if !c.allowed() {
		c.deny(ActionDeletePost)
		return
	}
	id, ok := postID.Int64()
	if !ok {
		c.payload.Record(ActionDeletePost, response.Result{"status": 400, "errors": "You must supply a post ID"})
		return
	}

	p, err := c.svc.store.GetPost(ctx, id)
	if err != nil {
		c.fail(ActionDeletePost, fmt.Errorf("loading post: %w", err))
		return
	}
	if p == nil || c.thread == nil || p.ThreadID != c.thread.ID {
		c.payload.Record(ActionDeletePost, response.Result{"status": 404, "errors": "Something went wrong"})
		return
	}

	if err := c.svc.store.SoftDeletePost(ctx, p.ID); err != nil {
		c.fail(ActionDeletePost, fmt.Errorf("deleting post: %w", err))
		return
	}

	c.payload.Record(ActionDeletePost, response.Result{"status": 200})
}

// DeleteThread detaches the loaded thread from its subject and soft-deletes it
// together with its posts. threadID must name the loaded thread. On failure
// nothing is changed.
func (c *Controller) DeleteThread(ctx context.Context, threadID ID) {
	if !c.allowed() {
		c.deny(ActionDeleteThread)
		return
	}
	id, ok := threadID.Int64()
	if !ok {
		c.payload.Record(ActionDeleteThread, response.Result{"status": 400, "errors": "You must supply a thread ID"})
		return
	}
	if c.thread == nil || c.thread.ID != id {
		c.payload.Record(ActionDeleteThread, response.Result{"status": 404, "errors": "Something went wrong"})
		return
	}

	n, err := c.svc.store.DeleteSubjectThread(ctx, c.subject, id)
	if errors.Is(err, db.ErrThreadNotFound) {
		c.thread = nil
		c.payload.Record(ActionDeleteThread, response.Result{"status": 404, "errors": "Something went wrong"})
		return
	}
	if err != nil {
		c.fail(ActionDeleteThread, fmt.Errorf("deleting thread: %w", err))
		return
	}

	c.svc.logger.Info("thread deleted", "subject", c.subject, "thread_id", id, "posts", n)
	c.thread = nil
	c.payload.Record(ActionDeleteThread, response.Result{"status": 200})
}

// View returns the loaded thread with its live posts ordered by creation, or
// nil when the subject has no thread.
func (c *Controller) View(ctx context.Context) (*View, error) {
	if !c.allowed() {
		return nil, ErrPermissionDenied
	}
	if c.thread == nil {
		return nil, nil
	}

	posts, err := c.svc.store.ListPosts(ctx, c.thread.ID)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	if posts == nil {
		posts = []*db.Post{}
	}
	return &View{Thread: c.thread, Posts: posts}, nil
}

func (c *Controller) deny(action string) {
	c.payload.Record(action, response.Result{"status": 403, "errors": "Permission denied"})
}

func (c *Controller) fail(action string, err error) {
	c.svc.logger.Error("thread action failed", "action", action, "subject", c.subject, "error", err)
	c.payload.Record(action, response.Result{"status": 500, "errors": "internal error"})
}
