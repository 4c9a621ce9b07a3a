package essentials

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ime-usp-br/nova-europa-sub000/internal/markers"
	"github.com/ime-usp-br/nova-europa-sub000/internal/tokens"
	"github.com/ime-usp-br/nova-europa-sub000/pkg/logger"
)

// RelPath returns path relative to root in POSIX form, or path itself when
// it does not live under root.
func RelPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// LoadContent reads paths in order and wraps each in ESSENTIAL FILE markers,
// stopping before the file that would push the total above maxTokens.
// The first readable file is always accepted, whatever its size.
// It returns the formatted text and the relative paths that were included.
func LoadContent(root string, paths []string, maxTokens int) (string, []string) {
	var (
		blocks   []string
		included []string
		total    int
	)

	for i, path := range paths {
		rel := RelPath(root, path)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", rel).Msg("essentials: read failed, skipping")
			continue
		}
		content := string(data)
		n := tokens.Estimate(content)

		if len(included) > 0 && total+n > maxTokens {
			logger.Info().
				Int("included", len(included)).
				Int("omitted", len(paths)-i).
				Int("tokens", total).
				Int("max_tokens", maxTokens).
				Msg("essentials: token ceiling reached")
			break
		}

		blocks = append(blocks, markers.Essential(rel, content))
		included = append(included, rel)
		total += n
	}

	return strings.Join(blocks, "\n\n"), included
}
