package store

import (
	"time"

	"bridge/api/internal/screenplay"
)

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Script is a screenplay owned by a single user. Scenes are stored as
// a JSONB array in creative order.
type Script struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Scenes      []screenplay.Scene
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScriptSummary is the list view of a script without its scenes.
type ScriptSummary struct {
	ID          string
	Title       string
	Description string
	SceneCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CommitInfo describes one snapshot in a script's history.
type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
