package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
)

// AdminStore is the shared persistence surface: admin accounts, cookie
// sessions, and the project registry rows.
type AdminStore interface {
	AdminByEmail(ctx context.Context, email string) (adminID, passwordHash string, err error)
	CreateAdminSession(ctx context.Context, adminID string) (sessionID string, err error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
	AdminFromSession(ctx context.Context, sessionID string) (adminSession, error)

	ListProjects(ctx context.Context) ([]ProjectInfo, error)
	CreateProject(ctx context.Context, slug, name string) error
	ProjectExists(ctx context.Context, slug string) (bool, error)
}

type ProjectInfo struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// AdminSQLiteStore implements AdminStore over the shared admin database.
type AdminSQLiteStore struct {
	db *sql.DB
}

func NewAdminSQLiteStore(ctx context.Context, db *sql.DB) (*AdminSQLiteStore, error) {
	s := &AdminSQLiteStore{db: db}
	if err := s.seedIfEmpty(ctx); err != nil {
		return nil, fmt.Errorf("seeding admin: %w", err)
	}
	return s, nil
}

// seedIfEmpty creates the bootstrap admin account on first run. The
// password is "changeme"; deployments override it out of band.
func (s *AdminSQLiteStore) seedIfEmpty(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, newID(), "admin@snapflow.dev",
		"$2a$10$trCdqP4npsbw0R1vQxVwXeT1HebzRmP01SXaNGPz1eSAZ7mpcL0Uu", nowUTC())
	return err
}

func (s *AdminSQLiteStore) AdminByEmail(ctx context.Context, email string) (string, string, error) {
	var adminID, passwordHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM admins WHERE email = ?
	`, email).Scan(&adminID, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return adminID, passwordHash, err
}

func (s *AdminSQLiteStore) CreateAdminSession(ctx context.Context, adminID string) (string, error) {
	sessionID := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_sessions (id, admin_id, created_at) VALUES (?, ?, ?)
	`, sessionID, adminID, nowUTC())
	return sessionID, err
}

func (s *AdminSQLiteStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *AdminSQLiteStore) AdminFromSession(ctx context.Context, sessionID string) (adminSession, error) {
	var sess adminSession
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.AdminID, &sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return adminSession{}, errNoAdminSession
	}
	return sess, err
}

func (s *AdminSQLiteStore) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, name, created_at FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []ProjectInfo{}
	for rows.Next() {
		var p ProjectInfo
		if err := rows.Scan(&p.Slug, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *AdminSQLiteStore) CreateProject(ctx context.Context, slug, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (slug, name, created_at) VALUES (?, ?, ?)
	`, slug, name, nowUTC())
	return err
}

func (s *AdminSQLiteStore) ProjectExists(ctx context.Context, slug string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM projects WHERE slug = ?`, slug).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
