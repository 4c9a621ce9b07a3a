// Package discovery gathers the candidate files for context assembly, either
// by scanning context directories or from an explicit include list.
package discovery

import (
	"errors"
	"fmt"
	"os"
)

// Discovery errors.
var (
	// ErrNoContextDir indicates that no timestamped context directory exists.
	ErrNoContextDir = errors.New("discovery: no context directory found")

	// ErrOutsideRoot indicates that a path escapes the project root.
	ErrOutsideRoot = errors.New("discovery: path outside project root")
)

// Unit is one candidate file. Content is read on first use and cached.
type Unit struct {
	RelPath   string
	AbsPath   string
	Essential bool

	loaded  bool
	content string
	err     error
}

// NewUnit creates a unit for the file at abs, relative to root as rel.
func NewUnit(rel, abs string) *Unit {
	return &Unit{RelPath: rel, AbsPath: abs}
}

// Content returns the file content, reading it on the first call.
func (u *Unit) Content() (string, error) {
	if !u.loaded {
		data, err := os.ReadFile(u.AbsPath)
		if err != nil {
			u.err = fmt.Errorf("read %s: %w", u.RelPath, err)
		} else {
			u.content = string(data)
		}
		u.loaded = true
	}
	return u.content, u.err
}

// Filter drops units whose relative path is in exclude.
func Filter(units []*Unit, exclude map[string]struct{}) []*Unit {
	if len(exclude) == 0 {
		return units
	}
	out := make([]*Unit, 0, len(units))
	for _, u := range units {
		if _, skip := exclude[u.RelPath]; skip {
			continue
		}
		out = append(out, u)
	}
	return out
}
