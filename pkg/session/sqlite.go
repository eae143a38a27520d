package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLitePersister stores session snapshots in a SQLite database. Each
// save replaces the full snapshot in one transaction.
type SQLitePersister struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS turns (
	session_id TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	id         TEXT NOT NULL DEFAULT '',
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	timestamp  TEXT NOT NULL,
	user       TEXT NOT NULL,
	persona    TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY
);
`

// NewSQLitePersister opens (or creates) the database at path and
// ensures the schema exists.
func NewSQLitePersister(path string) (*SQLitePersister, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	return &SQLitePersister{db: db}, nil
}

// Close closes the underlying database.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}

// Save replaces the stored snapshot with the given one.
func (p *SQLitePersister) Save(snapshot map[string][]Turn) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM turns`); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	sessionStmt, err := tx.Prepare(`INSERT INTO sessions (session_id) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare session insert: %w", err)
	}
	defer sessionStmt.Close()

	turnStmt, err := tx.Prepare(`INSERT INTO turns (session_id, seq, id, question, answer, timestamp, user, persona) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare turn insert: %w", err)
	}
	defer turnStmt.Close()

	for sessionID, turns := range snapshot {
		if _, err := sessionStmt.Exec(sessionID); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		for seq, turn := range turns {
			_, err := turnStmt.Exec(
				sessionID,
				seq,
				turn.ID,
				turn.Question,
				turn.Answer,
				turn.Timestamp.Format(time.RFC3339Nano),
				turn.User,
				turn.Persona,
			)
			if err != nil {
				return fmt.Errorf("failed to insert turn: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

// Load reads the stored snapshot. An empty database loads as an empty map.
func (p *SQLitePersister) Load() (map[string][]Turn, error) {
	snapshot := map[string][]Turn{}

	sessionRows, err := p.db.Query(`SELECT session_id FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer sessionRows.Close()

	for sessionRows.Next() {
		var id string
		if err := sessionRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		snapshot[id] = nil
	}
	if err := sessionRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	rows, err := p.db.Query(`SELECT session_id, id, question, answer, timestamp, user, persona FROM turns ORDER BY session_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sessionID, id, question, answer, ts, user, personaKey string
		if err := rows.Scan(&sessionID, &id, &question, &answer, &ts, &user, &personaKey); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		timestamp, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse turn timestamp: %w", err)
		}

		snapshot[sessionID] = append(snapshot[sessionID], Turn{
			ID:        id,
			Question:  question,
			Answer:    answer,
			Timestamp: timestamp,
			User:      user,
			Persona:   personaKey,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	return snapshot, nil
}
