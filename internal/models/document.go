package models

import (
	"path/filepath"
	"strings"
)

// InputDocument is one file handed to the screener, either uploaded or read from a folder.
type InputDocument struct {
	Name    string
	Content []byte
}

// Extension returns the lower-cased file extension including the dot.
func (d InputDocument) Extension() string {
	return strings.ToLower(filepath.Ext(d.Name))
}

// ResumeDocument is created once per ingested file and is read-only afterwards.
type ResumeDocument struct {
	FileName       string
	RawText        string
	NormalizedText string
}
