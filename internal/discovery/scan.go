package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ime-usp-br/nova-europa-sub000/pkg/logger"
)

var timestampDirPattern = regexp.MustCompile(`^\d{8}_\d{6}$`)

// LatestContextDir returns the name of the newest "YYYYMMDD_HHMMSS"
// subdirectory of base.
func LatestContextDir(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoContextDir, base)
		}
		return "", fmt.Errorf("read context dir %s: %w", base, err)
	}

	latest := ""
	for _, e := range entries {
		if e.IsDir() && timestampDirPattern.MatchString(e.Name()) && e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoContextDir, base)
	}
	return latest, nil
}

// ScanDirs walks each directory in turn and returns the files whose
// extension is listed in exts. Missing directories are logged and skipped.
// Units are keyed by their path relative to root; duplicates are dropped.
func ScanDirs(root string, dirs []string, exts []string) ([]*Unit, error) {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	seen := make(map[string]struct{})
	var units []*Unit

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			logger.Warn().Str("dir", dir).Msg("discovery: context directory missing, skipping")
			continue
		}

		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("discovery: walk error, skipping")
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if _, dup := seen[rel]; dup {
				return nil
			}
			seen[rel] = struct{}{}
			units = append(units, NewUnit(rel, path))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
	}

	logger.Debug().Int("files", len(units)).Msg("discovery: directory scan complete")
	return units, nil
}

// FromIncludeList builds units from caller-supplied relative paths. Paths
// that do not exist, are not regular files, or escape root are skipped.
func FromIncludeList(root string, rels []string) []*Unit {
	seen := make(map[string]struct{}, len(rels))
	units := make([]*Unit, 0, len(rels))

	for _, rel := range rels {
		rel = strings.TrimSpace(rel)
		if rel == "" {
			continue
		}
		abs, cleanRel, err := insideRoot(root, rel)
		if err != nil {
			logger.Warn().Err(err).Str("path", rel).Msg("discovery: rejecting include path")
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.Mode().IsRegular() {
			logger.Warn().Str("path", rel).Msg("discovery: include path not found, skipping")
			continue
		}
		if _, dup := seen[cleanRel]; dup {
			continue
		}
		seen[cleanRel] = struct{}{}
		units = append(units, NewUnit(cleanRel, abs))
	}
	return units
}

func insideRoot(root, rel string) (string, string, error) {
	abs := filepath.Clean(filepath.Join(root, filepath.FromSlash(rel)))
	r, err := filepath.Rel(root, abs)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) || r == "." {
		return "", "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return abs, filepath.ToSlash(r), nil
}
