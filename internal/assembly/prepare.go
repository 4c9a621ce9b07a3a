package assembly

import (
	"fmt"
	"path/filepath"

	"github.com/ime-usp-br/nova-europa-sub000/internal/discovery"
	"github.com/ime-usp-br/nova-europa-sub000/internal/essentials"
	"github.com/ime-usp-br/nova-europa-sub000/internal/manifest"
	"github.com/ime-usp-br/nova-europa-sub000/pkg/logger"
)

// PrepareOptions configures one context preparation.
type PrepareOptions struct {
	// Root is the project root; every relative path is resolved against it.
	Root string
	// ContextDir holds the timestamped context directories.
	ContextDir string
	// CommonDir is scanned after the latest context directory. Optional.
	CommonDir string
	// LatestDir names the context directory to scan; found when empty.
	LatestDir  string
	Extensions []string

	// Include switches to include-list mode: exactly these relative paths
	// are candidates.
	Include []string
	Exclude []string

	Manifest   *manifest.Manifest
	Budget     *int
	Essentials essentials.PathSet
}

// Prepare discovers candidate files and assembles them into blocks.
func Prepare(opts PrepareOptions) ([]Block, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	var units []*discovery.Unit
	if len(opts.Include) > 0 {
		units = discovery.FromIncludeList(root, opts.Include)
		logger.Info().Int("requested", len(opts.Include)).Int("files", len(units)).
			Msg("assembly: include-list mode")
	} else {
		latest := opts.LatestDir
		contextBase := opts.ContextDir
		if !filepath.IsAbs(contextBase) {
			contextBase = filepath.Join(root, contextBase)
		}
		if latest == "" {
			latest, err = discovery.LatestContextDir(contextBase)
			if err != nil {
				logger.Error().Err(err).Str("dir", contextBase).Msg("assembly: no context directory")
				return nil, err
			}
		}
		dirs := []string{filepath.Join(contextBase, latest)}
		if opts.CommonDir != "" {
			dirs = append(dirs, opts.CommonDir)
		}
		units, err = discovery.ScanDirs(root, dirs, opts.Extensions)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("latest_dir", latest).Int("files", len(units)).
			Msg("assembly: directory mode")
	}

	for _, u := range units {
		u.Essential = opts.Essentials.Has(u.AbsPath)
	}

	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, rel := range opts.Exclude {
		exclude[filepath.ToSlash(filepath.Clean(rel))] = struct{}{}
	}

	return Assemble(units, exclude, opts.Manifest, opts.Budget, opts.Essentials), nil
}
