package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionMeta is the device/app metadata recorded when a scan starts.
type SessionMeta struct {
	Name        string
	DeviceID    string
	DeviceModel string
	AppVersion  string
	ScanType    string
}

// ScanSession represents one walkthrough scan: a device, a start time,
// and the frames captured until it ended.
type ScanSession struct {
	SessionID   string `json:"session_id"`
	Name        string `json:"name,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	DeviceModel string `json:"device_model,omitempty"`
	AppVersion  string `json:"app_version,omitempty"`
	ScanType    string `json:"scan_type"`
	StartedAtMs int64  `json:"started_at_ms"`
	EndedAtMs   *int64 `json:"ended_at_ms,omitempty"`
}

// Active reports whether the session has not been ended yet.
func (s *ScanSession) Active() bool {
	return s.EndedAtMs == nil
}

// SessionStore manages persistence for scan sessions.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a SessionStore backed by the given database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// CreateSession inserts a new session starting now and returns it.
func (s *SessionStore) CreateSession(ctx context.Context, meta SessionMeta) (*ScanSession, error) {
	if meta.ScanType == "" {
		meta.ScanType = "walkthrough"
	}
	session := &ScanSession{
		SessionID:   uuid.New().String(),
		Name:        meta.Name,
		DeviceID:    meta.DeviceID,
		DeviceModel: meta.DeviceModel,
		AppVersion:  meta.AppVersion,
		ScanType:    meta.ScanType,
		StartedAtMs: time.Now().UnixMilli(),
	}

	err := retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO scan_sessions (
				session_id, name, device_id, device_model, app_version, scan_type, started_at_ms
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			session.SessionID, session.Name, session.DeviceID, session.DeviceModel,
			session.AppVersion, session.ScanType, session.StartedAtMs,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("inserting session %s: %w", session.SessionID, err)
	}
	return session, nil
}

// EndSession marks the session finished at the given time. Ending an
// already ended session overwrites the end time.
func (s *SessionStore) EndSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	return retryOnBusy(func() error {
		result, err := s.db.ExecContext(ctx, `
			UPDATE scan_sessions SET ended_at_ms = ? WHERE session_id = ?`,
			endedAt.UnixMilli(), sessionID,
		)
		if err != nil {
			return fmt.Errorf("end session: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("session %s not found", sessionID)
		}
		return nil
	})
}

// RenameSession sets the user-visible session name.
func (s *SessionStore) RenameSession(ctx context.Context, sessionID, name string) error {
	return retryOnBusy(func() error {
		result, err := s.db.ExecContext(ctx, `
			UPDATE scan_sessions SET name = ? WHERE session_id = ?`,
			name, sessionID,
		)
		if err != nil {
			return fmt.Errorf("rename session: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("session %s not found", sessionID)
		}
		return nil
	})
}

// GetSession returns one session by ID.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*ScanSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, name, device_id, device_model, app_version, scan_type,
		       started_at_ms, ended_at_ms
		FROM scan_sessions WHERE session_id = ?`, sessionID)

	var session ScanSession
	var endedAt sql.NullInt64
	err := row.Scan(&session.SessionID, &session.Name, &session.DeviceID,
		&session.DeviceModel, &session.AppVersion, &session.ScanType,
		&session.StartedAtMs, &endedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if endedAt.Valid {
		session.EndedAtMs = &endedAt.Int64
	}
	return &session, nil
}

// ListSessions returns all sessions, newest first.
func (s *SessionStore) ListSessions(ctx context.Context) ([]*ScanSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, name, device_id, device_model, app_version, scan_type,
		       started_at_ms, ended_at_ms
		FROM scan_sessions ORDER BY started_at_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*ScanSession
	for rows.Next() {
		var session ScanSession
		var endedAt sql.NullInt64
		if err := rows.Scan(&session.SessionID, &session.Name, &session.DeviceID,
			&session.DeviceModel, &session.AppVersion, &session.ScanType,
			&session.StartedAtMs, &endedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		if endedAt.Valid {
			session.EndedAtMs = &endedAt.Int64
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// LatestSession returns the most recently started session.
func (s *SessionStore) LatestSession(ctx context.Context) (*ScanSession, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions recorded")
	}
	return sessions[0], nil
}

// DeleteSession removes a session and all of its frames. The frame rows
// are removed in the same transaction so a cascading foreign key is not
// relied on.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM captured_frames WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("delete session frames: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM scan_sessions WHERE session_id = ?`, sessionID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("session %s not found", sessionID)
		}

		return tx.Commit()
	})
}
