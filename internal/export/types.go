// Package export provides screenplay export functionality for PDF and DOCX formats.
package export

import (
	"errors"
	"time"

	"bridge/api/internal/screenplay"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Request contains parameters for an export operation
type Request struct {
	ScriptID string
	UserID   string
	Version  string // "latest" or commit hash
	Format   Format
}

// Screenplay represents the script content for export
type Screenplay struct {
	ID          string
	Title       string
	Description string
	Scenes      []screenplay.Scene
	Author      string
	UpdatedAt   time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrContentUnavailable indicates script content could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
