package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ime-usp-br/nova-europa-sub000/pkg/logger"
)

var manifestNamePattern = regexp.MustCompile(`^\d{8}_\d{6}_manifest\.json$`)

// Entry describes one known file.
type Entry struct {
	Type       string  `json:"type"`
	TokenCount *int    `json:"token_count"`
	Summary    *string `json:"summary"`
}

// Tokens returns the recorded token count. Absent or non-positive counts are
// reported as unknown.
func (e Entry) Tokens() (int, bool) {
	if e.TokenCount == nil || *e.TokenCount <= 0 {
		return 0, false
	}
	return *e.TokenCount, true
}

// SummaryText returns the summary, or "" when absent or blank.
func (e Entry) SummaryText() string {
	if e.Summary == nil || strings.TrimSpace(*e.Summary) == "" {
		return ""
	}
	return *e.Summary
}

// Manifest maps project-root-relative POSIX paths to entries.
type Manifest struct {
	Path  string
	Files map[string]Entry
}

// Lookup returns the entry for a relative path.
func (m *Manifest) Lookup(rel string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	e, ok := m.Files[filepath.ToSlash(rel)]
	return e, ok
}

// Paths returns the manifest keys in sorted order.
func (m *Manifest) Paths() []string {
	if m == nil {
		return nil
	}
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Stats summarizes a manifest.
type Stats struct {
	Files         int `json:"files"`
	WithSummary   int `json:"with_summary"`
	UnknownTokens int `json:"unknown_tokens"`
	KnownTokens   int `json:"known_tokens"`
}

// Stats computes entry counts and the total of known token counts.
func (m *Manifest) Stats() Stats {
	var s Stats
	if m == nil {
		return s
	}
	s.Files = len(m.Files)
	for _, e := range m.Files {
		if e.SummaryText() != "" {
			s.WithSummary++
		}
		if n, ok := e.Tokens(); ok {
			s.KnownTokens += n
		} else {
			s.UnknownTokens++
		}
	}
	return s
}

// FindLatest returns the path of the most recent "<timestamp>_manifest.json"
// in dir, or "" when the directory is missing or holds none.
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("dir", dir).Msg("manifest: directory not found")
			return "", nil
		}
		return "", fmt.Errorf("read manifest dir %s: %w", dir, err)
	}

	latest := ""
	for _, e := range entries {
		if e.IsDir() || !manifestNamePattern.MatchString(e.Name()) {
			continue
		}
		if e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		logger.Warn().Str("dir", dir).Msg("manifest: no manifest files found")
		return "", nil
	}
	return filepath.Join(dir, latest), nil
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("manifest: read failed")
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("manifest: parse failed")
		return nil, err
	}
	m.Path = path
	logger.Debug().Str("path", path).Int("files", len(m.Files)).Msg("manifest: loaded")
	return m, nil
}

// LoadLatest loads the newest manifest in dir.
func LoadLatest(dir string) (*Manifest, error) {
	path, err := FindLatest(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
	}
	return Load(path)
}

// Parse decodes a manifest document. Individual entries are decoded
// leniently: a field of the wrong JSON type is treated as absent.
func Parse(data []byte) (*Manifest, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	rawFiles, ok := doc["files"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"files\"", ErrInvalidManifest)
	}
	var files map[string]json.RawMessage
	if err := json.Unmarshal(rawFiles, &files); err != nil || files == nil {
		return nil, fmt.Errorf("%w: \"files\" is not an object", ErrInvalidManifest)
	}

	m := &Manifest{Files: make(map[string]Entry, len(files))}
	for rel, raw := range files {
		m.Files[filepath.ToSlash(rel)] = decodeEntry(rel, raw)
	}
	return m, nil
}

func decodeEntry(rel string, raw json.RawMessage) Entry {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		logger.Debug().Str("path", rel).Msg("manifest: entry is not an object")
		return Entry{}
	}

	var e Entry
	if v, ok := fields["type"]; ok {
		if err := json.Unmarshal(v, &e.Type); err != nil {
			logger.Debug().Str("path", rel).Msg("manifest: ignoring malformed type")
		}
	}
	if v, ok := fields["token_count"]; ok {
		var n *float64
		if err := json.Unmarshal(v, &n); err != nil {
			logger.Debug().Str("path", rel).Msg("manifest: ignoring malformed token_count")
		} else if n != nil {
			c := int(*n)
			e.TokenCount = &c
		}
	}
	if v, ok := fields["summary"]; ok {
		var s *string
		if err := json.Unmarshal(v, &s); err != nil {
			logger.Debug().Str("path", rel).Msg("manifest: ignoring malformed summary")
		} else {
			e.Summary = s
		}
	}
	return e
}
