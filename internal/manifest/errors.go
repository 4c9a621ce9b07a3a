// Package manifest reads the JSON index of project files (type, token count,
// summary) that drives context budgeting.
package manifest

import "errors"

// Manifest errors.
var (
	// ErrInvalidManifest indicates the document is not an object with a "files" object.
	ErrInvalidManifest = errors.New("manifest: invalid manifest document")

	// ErrNoManifest indicates that no manifest file could be found.
	ErrNoManifest = errors.New("manifest: no manifest found")
)
