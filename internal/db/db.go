package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store defines all database operations.
type Store interface {
	GetThread(ctx context.Context, id int64) (*Thread, error)
	EnsureSubjectThread(ctx context.Context, subject, title string) (*Thread, bool, error)
	DeleteSubjectThread(ctx context.Context, subject string, threadID int64) (int64, error)
	CreatePost(ctx context.Context, p *Post) error
	GetPost(ctx context.Context, id int64) (*Post, error)
	ListPosts(ctx context.Context, threadID int64) ([]*Post, error)
	SoftDeletePost(ctx context.Context, id int64) error
	GetSubject(ctx context.Context, key string) (*Subject, error)
	PurgeDeleted(ctx context.Context, before time.Time) (PurgeResult, error)
	Close() error
}

// ErrThreadNotFound is returned when a thread to delete is missing or
// already deleted.
var ErrThreadNotFound = errors.New("thread not found")

// attachSubjectSQL points a subject at a thread unless it already has a
// live one.
const attachSubjectSQL = `INSERT INTO subjects (subject, thread_id, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(subject) DO UPDATE SET
	  thread_id = excluded.thread_id,
	  updated_at = excluded.updated_at
	WHERE subjects.thread_id IS NULL
	   OR subjects.thread_id NOT IN (SELECT id FROM threads WHERE deleted_at IS NULL)`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// sqlOpenFunc is a package-level variable to allow testing sql.Open failures.
var sqlOpenFunc = sql.Open

// NewSQLiteStore opens a SQLite database and returns a new SQLiteStore.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sqlOpenFunc("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := initDB(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &SQLiteStore{db: sqlDB}, nil
}

// initDB configures pragmas and runs migrations on an open database connection.
func initDB(sqlDB *sql.DB) error {
	// An in-memory database lives per connection.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := RunMigrations(context.Background(), sqlDB); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// NewSQLiteStoreFromDB creates a SQLiteStore from an existing *sql.DB connection.
func NewSQLiteStoreFromDB(sqlDB *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: sqlDB}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetThread(ctx context.Context, id int64) (*Thread, error) {
	t := &Thread{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM threads WHERE id = ? AND deleted_at IS NULL`,
		id,
	).Scan(&t.ID, &t.Title, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// EnsureSubjectThread returns the live thread attached to subject, creating
// and attaching a new one with the given title when there is none. The bool
// reports whether the thread was created by this call.
func (s *SQLiteStore) EnsureSubjectThread(ctx context.Context, subject, title string) (*Thread, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning thread creation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	t, err := subjectThread(ctx, tx, subject)
	if err != nil {
		return nil, false, fmt.Errorf("loading subject thread: %w", err)
	}
	if t != nil {
		return t, false, nil
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO threads (title, created_at, updated_at) VALUES (?, ?, ?)`,
		title, now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting thread: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, err
	}

	result, err = tx.ExecContext(ctx, attachSubjectSQL, subject, id, now)
	if err != nil {
		return nil, false, fmt.Errorf("attaching thread: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		// Another writer attached a thread first; the rollback drops ours.
		t, err := subjectThread(ctx, tx, subject)
		if err != nil {
			return nil, false, fmt.Errorf("loading subject thread: %w", err)
		}
		if t == nil {
			return nil, false, fmt.Errorf("attaching thread: subject %q is attached to a missing thread", subject)
		}
		return t, false, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing thread creation: %w", err)
	}
	return &Thread{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}, true, nil
}

// DeleteSubjectThread soft-deletes a live thread and its live posts and
// detaches it from subject, all or nothing. It returns the number of posts
// deleted, or ErrThreadNotFound when the thread is not live.
func (s *SQLiteStore) DeleteSubjectThread(ctx context.Context, subject string, threadID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning thread deletion: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE threads SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, threadID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting thread: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrThreadNotFound
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE posts SET deleted_at = ?, updated_at = ? WHERE thread_id = ? AND deleted_at IS NULL`,
		now, now, threadID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting posts: %w", err)
	}
	posts, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE subjects SET thread_id = NULL, updated_at = ? WHERE subject = ? AND thread_id = ?`,
		now, subject, threadID,
	); err != nil {
		return 0, fmt.Errorf("detaching thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing thread deletion: %w", err)
	}
	return posts, nil
}

func (s *SQLiteStore) CreatePost(ctx context.Context, p *Post) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (thread_id, language_id, owner_id, post, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ThreadID, p.LanguageID, p.OwnerID, p.Post, now, now,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetPost(ctx context.Context, id int64) (*Post, error) {
	p := &Post{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, thread_id, language_id, owner_id, post, created_at, updated_at
		 FROM posts WHERE id = ? AND deleted_at IS NULL`,
		id,
	).Scan(&p.ID, &p.ThreadID, &p.LanguageID, &p.OwnerID, &p.Post, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context, threadID int64) ([]*Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, language_id, owner_id, post, created_at, updated_at
		 FROM posts WHERE thread_id = ? AND deleted_at IS NULL ORDER BY created_at ASC, id ASC`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (s *SQLiteStore) SoftDeletePost(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE posts SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	return err
}

func (s *SQLiteStore) GetSubject(ctx context.Context, key string) (*Subject, error) {
	sub := &Subject{}
	var threadID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT subject, thread_id, updated_at FROM subjects WHERE subject = ?`,
		key,
	).Scan(&sub.Key, &threadID, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub.ThreadID = threadID.Int64
	return sub, nil
}

// PurgeDeleted removes rows soft-deleted before the cutoff. Posts of a purged
// thread go with it regardless of their own deletion time.
func (s *SQLiteStore) PurgeDeleted(ctx context.Context, before time.Time) (PurgeResult, error) {
	var res PurgeResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning purge: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`DELETE FROM posts WHERE (deleted_at IS NOT NULL AND deleted_at < ?)
		 OR thread_id IN (SELECT id FROM threads WHERE deleted_at IS NOT NULL AND deleted_at < ?)`,
		before, before,
	)
	if err != nil {
		return res, fmt.Errorf("purging posts: %w", err)
	}
	if res.Posts, err = result.RowsAffected(); err != nil {
		return res, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE subjects SET thread_id = NULL
		 WHERE thread_id IN (SELECT id FROM threads WHERE deleted_at IS NOT NULL AND deleted_at < ?)`,
		before,
	); err != nil {
		return res, fmt.Errorf("detaching purged threads: %w", err)
	}

	result, err = tx.ExecContext(ctx,
		`DELETE FROM threads WHERE deleted_at IS NOT NULL AND deleted_at < ?`,
		before,
	)
	if err != nil {
		return res, fmt.Errorf("purging threads: %w", err)
	}
	if res.Threads, err = result.RowsAffected(); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("committing purge: %w", err)
	}
	return res, nil
}

// helpers

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// subjectThread returns the live thread attached to subject, or nil.
func subjectThread(ctx context.Context, q rowQuerier, subject string) (*Thread, error) {
	t := &Thread{}
	err := q.QueryRowContext(ctx,
		`SELECT t.id, t.title, t.created_at, t.updated_at
		 FROM subjects s JOIN threads t ON t.id = s.thread_id
		 WHERE s.subject = ? AND t.deleted_at IS NULL`,
		subject,
	).Scan(&t.ID, &t.Title, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanPosts(rows *sql.Rows) ([]*Post, error) {
	var posts []*Post
	for rows.Next() {
		p := &Post{}
		if err := rows.Scan(
			&p.ID, &p.ThreadID, &p.LanguageID, &p.OwnerID, &p.Post,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
