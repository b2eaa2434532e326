// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive mirrors completed interactions into SQLite so they survive the
// history file being reset at startup. Each process run gets a session id.
type Archive struct {
	db        *sql.DB
	sessionID string
}

// ArchivedLog is one row read back from the archive.
type ArchivedLog struct {
	ID        string
	SessionID string
	Log       Log
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS interactions (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	time          TEXT NOT NULL,
	prompt        TEXT NOT NULL,
	response      TEXT NOT NULL,
	segments      TEXT NOT NULL,
	model         TEXT,
	system_prompt TEXT,
	filtering     INTEGER NOT NULL,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at);
`

// OpenArchive opens (creating if needed) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}

	return &Archive{db: db, sessionID: uuid.NewString()}, nil
}

// SessionID identifies the rows written by this process.
func (a *Archive) SessionID() string {
	return a.sessionID
}

// Record inserts one interaction.
func (a *Archive) Record(ctx context.Context, l Log) error {
	segments, err := json.Marshal(l.Response)
	if err != nil {
		return fmt.Errorf("failed to encode segments: %w", err)
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO interactions
			(id, session_id, time, prompt, response, segments, model, system_prompt, filtering, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), a.sessionID, l.Time, l.Prompt, strings.Join(l.Response, ""), string(segments),
		nullString(l.Model), nullString(l.SystemPrompt), l.Filtering, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to archive interaction: %w", err)
	}
	return nil
}

// Recent returns up to limit interactions, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]ArchivedLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT id, session_id, time, prompt, segments, model, system_prompt, filtering
		 FROM interactions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var out []ArchivedLog
	for rows.Next() {
		var (
			row          ArchivedLog
			segments     string
			model        sql.NullString
			systemPrompt sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.SessionID, &row.Log.Time, &row.Log.Prompt,
			&segments, &model, &systemPrompt, &row.Log.Filtering); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		if err := json.Unmarshal([]byte(segments), &row.Log.Response); err != nil {
			return nil, fmt.Errorf("failed to decode segments: %w", err)
		}
		row.Log.Model = fromNullString(model)
		row.Log.SystemPrompt = fromNullString(systemPrompt)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Count returns the number of archived interactions.
func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count archive: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
