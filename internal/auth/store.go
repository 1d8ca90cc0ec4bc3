package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Agent is a back-office user account persisted in the agents table.
type Agent struct {
	ID           pgtype.UUID
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// Session is a persisted refresh-token session.
type Session struct {
	ID        pgtype.UUID
	AgentID   pgtype.UUID
	TokenHash string
	UserAgent string
	IP        string
	ExpiresAt pgtype.Timestamptz
}

// Store defines the persistence operations required by the auth service.
type Store interface {
	CreateAgent(ctx context.Context, name, email, passwordHash string) (Agent, error)
	GetAgentByEmail(ctx context.Context, email string) (Agent, error)
	GetAgentByID(ctx context.Context, id pgtype.UUID) (Agent, error)
	CreateSession(ctx context.Context, agentID pgtype.UUID, tokenHash, userAgent, ip string, expiresAt time.Time) error
	GetSessionByToken(ctx context.Context, tokenHash string) (Session, error)
	RotateSession(ctx context.Context, id pgtype.UUID, tokenHash string, expiresAt time.Time) error
	DeleteSessionByToken(ctx context.Context, tokenHash string) error
	DeleteSessionsByAgent(ctx context.Context, agentID pgtype.UUID) error
}

// PGStore implements Store on top of a pgx connection pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

const agentColumns = `id, name, email, password_hash, roles, created_at, updated_at`

// CreateAgent inserts a new agent account.
func (s PGStore) CreateAgent(ctx context.Context, name, email, passwordHash string) (Agent, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO agents (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+agentColumns, name, email, passwordHash)
	return scanAgent(row)
}

// GetAgentByEmail fetches an agent by normalised email.
func (s PGStore) GetAgentByEmail(ctx context.Context, email string) (Agent, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE email = $1`, email)
	return scanAgent(row)
}

// GetAgentByID fetches an agent by primary key.
func (s PGStore) GetAgentByID(ctx context.Context, id pgtype.UUID) (Agent, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

// CreateSession stores a hashed refresh token.
func (s PGStore) CreateSession(ctx context.Context, agentID pgtype.UUID, tokenHash, userAgent, ip string, expiresAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO agent_sessions (agent_id, token_hash, user_agent, ip, expires_at)
		VALUES ($1, $2, $3, $4, $5)`, agentID, tokenHash, userAgent, ip, expiresAt)
	return err
}

// GetSessionByToken fetches a session by hashed refresh token.
func (s PGStore) GetSessionByToken(ctx context.Context, tokenHash string) (Session, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, agent_id, token_hash, user_agent, ip, expires_at
		FROM agent_sessions WHERE token_hash = $1`, tokenHash)
	var sess Session
	err := row.Scan(&sess.ID, &sess.AgentID, &sess.TokenHash, &sess.UserAgent, &sess.IP, &sess.ExpiresAt)
	return sess, err
}

// RotateSession replaces the token hash and extends expiry for an existing session.
func (s PGStore) RotateSession(ctx context.Context, id pgtype.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE agent_sessions SET token_hash = $2, expires_at = $3 WHERE id = $1`,
		id, tokenHash, expiresAt)
	return err
}

// DeleteSessionByToken removes a session by hashed token.
func (s PGStore) DeleteSessionByToken(ctx context.Context, tokenHash string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM agent_sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteSessionsByAgent removes every session owned by an agent.
func (s PGStore) DeleteSessionsByAgent(ctx context.Context, agentID pgtype.UUID) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM agent_sessions WHERE agent_id = $1`, agentID)
	return err
}

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Roles, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
