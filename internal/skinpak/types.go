// Package skinpak reads and writes .skinpak archives, a single-file
// SQLite format for baked skin texture sets.
package skinpak

import "fmt"

// Metadata describes the contents of a .skinpak archive.
type Metadata struct {
	Name        string // Human-readable archive identifier
	Description string // Human-readable description
	Resolution  int    // Edge length of the stored maps in pixels
	Detail      string // Detail level the maps were baked at
	Version     string // Version string
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Resolution > 0 {
		result["resolution"] = fmt.Sprintf("%d", m.Resolution)
	}
	if m.Detail != "" {
		result["detail"] = m.Detail
	}
	if m.Version != "" {
		result["version"] = m.Version
	}

	return result
}
