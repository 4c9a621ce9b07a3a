// Package selector builds the payload of the preliminary call that asks a
// cheap model which manifest files are relevant to a task.
package selector

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ime-usp-br/nova-europa-sub000/internal/essentials"
	"github.com/ime-usp-br/nova-europa-sub000/internal/manifest"
	"github.com/ime-usp-br/nova-europa-sub000/pkg/logger"
)

// ErrNoManifest indicates that the payload cannot be built without a manifest.
var ErrNoManifest = errors.New("selector: manifest is required")

// Builder composes selector payloads.
type Builder struct {
	Resolver *essentials.Resolver
	// EssentialTokens caps the essential content sent to the selector call.
	EssentialTokens int
	// ManifestFilterTokens drops manifest entries larger than this.
	ManifestFilterTokens int
}

// RemainingEntry is the projection of a manifest entry sent to the selector.
type RemainingEntry struct {
	Type       string  `json:"type"`
	Summary    *string `json:"summary"`
	TokenCount *int    `json:"token_count"`
}

// Build returns the selector prompt for task with the essential content and
// remaining manifest substituted in.
func (b *Builder) Build(task string, args essentials.Args, latestDir string, m *manifest.Manifest, template string) (string, error) {
	if m == nil {
		return "", ErrNoManifest
	}

	ess := b.Resolver.Resolve(task, args, latestDir)
	content, included := essentials.LoadContent(b.Resolver.Root, ess.Sorted(), b.EssentialTokens)

	remaining := b.RemainingManifest(m, included)
	manifestJSON, err := marshalIndent(remaining)
	if err != nil {
		return "", fmt.Errorf("encode remaining manifest: %w", err)
	}

	logger.Info().
		Str("task", task).
		Int("essential_files", len(included)).
		Int("manifest_files", len(m.Files)).
		Int("remaining_files", len(remaining)).
		Msg("selector: payload built")

	payload := strings.ReplaceAll(template, EssentialPlaceholder, content)
	payload = strings.ReplaceAll(payload, ManifestPlaceholder, manifestJSON)
	return payload, nil
}

// RemainingManifest returns the manifest entries that are not already
// included and whose token count is unknown or within the filter threshold.
func (b *Builder) RemainingManifest(m *manifest.Manifest, included []string) map[string]RemainingEntry {
	skip := make(map[string]struct{}, len(included))
	for _, rel := range included {
		skip[rel] = struct{}{}
	}

	out := make(map[string]RemainingEntry, len(m.Files))
	for rel, e := range m.Files {
		if _, ok := skip[rel]; ok {
			continue
		}
		if e.TokenCount != nil && *e.TokenCount > b.ManifestFilterTokens {
			logger.Debug().Str("path", rel).Int("tokens", *e.TokenCount).
				Msg("selector: dropping oversized manifest entry")
			continue
		}
		out[rel] = RemainingEntry{Type: e.Type, Summary: e.Summary, TokenCount: e.TokenCount}
	}
	return out
}

func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
