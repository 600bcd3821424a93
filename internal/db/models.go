package db

import "time"

// Thread is a discussion thread attached to a subject.
type Thread struct {
	ID        int64      `json:"thread_id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"date_created"`
	UpdatedAt time.Time  `json:"date_modified"`
	DeletedAt *time.Time `json:"date_deleted,omitempty"`
}

// Post is a single message in a thread.
type Post struct {
	ID         int64      `json:"post_id"`
	ThreadID   int64      `json:"thread_id"`
	LanguageID int64      `json:"language_id"`
	OwnerID    int64      `json:"owner_id"`
	Post       string     `json:"post"`
	CreatedAt  time.Time  `json:"date_created"`
	UpdatedAt  time.Time  `json:"date_modified"`
	DeletedAt  *time.Time `json:"date_deleted,omitempty"`
}

// Subject is the parent record a thread hangs off. ThreadID is zero when the
// subject has no thread.
type Subject struct {
	Key       string    `json:"subject"`
	ThreadID  int64     `json:"thread_id"`
	UpdatedAt time.Time `json:"date_modified"`
}

// PurgeResult reports how many soft-deleted rows a purge removed.
type PurgeResult struct {
	Posts   int64
	Threads int64
}
