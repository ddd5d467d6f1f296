// Package storage defines the export vault: a directory of Markdown outlines
// that nodes can be exported to and imported from.
package storage

import "time"

// FileInfo describes one Markdown file in the vault.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for vault file operations. Paths are relative to
// the vault root.
type Provider interface {
	// List returns every .md file under dir.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
}
