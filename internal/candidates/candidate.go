// Package candidates builds the in-memory pool of résumés that gets ranked.
package candidates

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Candidate is a résumé with its semantic vector. Score is only meaningful after a
// scoring pass and is rewritten in full by every pass.
type Candidate struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Text      string    `json:"-"`
	Embedding []float32 `json:"-"`
	Score     float64   `json:"score"`
}

// HasEmail reports whether the candidate can be notified.
func (c Candidate) HasEmail() bool {
	return strings.TrimSpace(c.Email) != ""
}

// Document is a handle to a source file.
type Document struct {
	// ID is the file name without its extension.
	ID   string
	Name string
	Path string
}

// NewDocument derives a document handle from a path.
func NewDocument(path string) Document {
	name := filepath.Base(path)
	return Document{
		ID:   strings.TrimSuffix(name, filepath.Ext(name)),
		Name: name,
		Path: path,
	}
}

// InitError reports a document that could not be turned into a candidate.
type InitError struct {
	Document string
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize candidate from %q: %v", e.Document, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
