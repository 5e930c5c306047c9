// Package store persists user music preferences in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Preferences is the free-form music profile a user maintains.
type Preferences struct {
	PreferredGenres []string `json:"preferred_genres"`
	AvoidGenres     []string `json:"avoid_genres"`
	FavoriteArtists []string `json:"favorite_artists"`
	Dislikes        []string `json:"dislikes"`
	Notes           string   `json:"notes"`
	EnergyProfile   string   `json:"energy_profile"`
}

// normalize makes sure list fields serialize as [] instead of null.
func (p *Preferences) normalize() {
	if p.PreferredGenres == nil {
		p.PreferredGenres = []string{}
	}
	if p.AvoidGenres == nil {
		p.AvoidGenres = []string{}
	}
	if p.FavoriteArtists == nil {
		p.FavoriteArtists = []string{}
	}
	if p.Dislikes == nil {
		p.Dislikes = []string{}
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS user_preferences (
	user_id TEXT PRIMARY KEY,
	preferred_genres TEXT NOT NULL,
	avoid_genres TEXT NOT NULL,
	favorite_artists TEXT NOT NULL,
	dislikes TEXT NOT NULL,
	notes TEXT NOT NULL,
	energy_profile TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// PreferencesStore is a SQLite-backed preferences repository.
type PreferencesStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the preferences database at path.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*PreferencesStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	// WAL mode for better concurrency under the HTTP server.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	return &PreferencesStore{db: db}, nil
}

// Get returns the stored preferences for a user. Unknown users get the
// zero-value preferences, not an error.
func (s *PreferencesStore) Get(userID string) (Preferences, error) {
	row := s.db.QueryRow(`
		SELECT preferred_genres, avoid_genres, favorite_artists, dislikes, notes, energy_profile
		FROM user_preferences WHERE user_id = ?`, userID)

	var rawPreferred, rawAvoid, rawArtists, rawDislikes string
	var p Preferences
	err := row.Scan(&rawPreferred, &rawAvoid, &rawArtists, &rawDislikes, &p.Notes, &p.EnergyProfile)
	if err == sql.ErrNoRows {
		p.normalize()
		return p, nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	p.PreferredGenres = loadList(rawPreferred)
	p.AvoidGenres = loadList(rawAvoid)
	p.FavoriteArtists = loadList(rawArtists)
	p.Dislikes = loadList(rawDislikes)
	return p, nil
}

// Set upserts a user's preferences, replacing any previous record.
func (s *PreferencesStore) Set(userID string, p Preferences) error {
	p.normalize()
	now := time.Now().Unix()

	_, err := s.db.Exec(`
		INSERT INTO user_preferences (
			user_id, preferred_genres, avoid_genres, favorite_artists, dislikes, notes, energy_profile, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			preferred_genres=excluded.preferred_genres,
			avoid_genres=excluded.avoid_genres,
			favorite_artists=excluded.favorite_artists,
			dislikes=excluded.dislikes,
			notes=excluded.notes,
			energy_profile=excluded.energy_profile,
			updated_at=excluded.updated_at`,
		userID,
		dumpList(p.PreferredGenres),
		dumpList(p.AvoidGenres),
		dumpList(p.FavoriteArtists),
		dumpList(p.Dislikes),
		p.Notes,
		p.EnergyProfile,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *PreferencesStore) Close() error {
	return s.db.Close()
}

func dumpList(values []string) string {
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// loadList tolerates malformed rows by returning an empty list.
func loadList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return []string{}
	}
	if values == nil {
		return []string{}
	}
	return values
}
