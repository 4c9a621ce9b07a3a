package essentials

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/ime-usp-br/nova-europa-sub000/pkg/logger"
)

const (
	latestDirKey   = "latest_dir_name"
	docFilePattern = "{doc_file}"
)

// Args is the bag of CLI arguments available to pattern substitution.
// A nil value means the argument was not given.
type Args map[string]any

// Replacement is one "{key}" -> value entry of a substitution table.
type Replacement struct {
	Key   string
	Value string
}

// BuildTable returns the ordered substitution table for a task invocation:
// latest_dir_name first, then every non-nil argument sorted by name.
// Only an argument literally named latest_dir_name overrides the first entry.
func BuildTable(args Args, latestDir string) []Replacement {
	table := []Replacement{{Key: latestDirKey, Value: latestDir}}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := args[k]
		if v == nil {
			continue
		}
		if k == latestDirKey {
			table[0].Value = fmt.Sprint(v)
			continue
		}
		table = append(table, Replacement{Key: k, Value: fmt.Sprint(v)})
	}
	return table
}

// Substitute replaces every "{key}" occurrence of every table key in
// pattern. ok is false when braces remain after substitution.
func Substitute(pattern string, table []Replacement) (string, bool) {
	out := pattern
	for _, r := range table {
		out = strings.ReplaceAll(out, "{"+r.Key+"}", r.Value)
	}
	if strings.Contains(out, "{") && strings.Contains(out, "}") {
		return out, false
	}
	return out, true
}

// truthy reports whether a CLI argument value counts as given.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return !rv.IsZero()
	}
}

// Resolver expands essential patterns into absolute file paths.
type Resolver struct {
	Root string
	Map  Map
}

// NewResolver creates a Resolver rooted at root. A nil map selects DefaultMap.
func NewResolver(root string, m Map) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root %s: %w", root, err)
	}
	if m == nil {
		m = DefaultMap()
	}
	return &Resolver{Root: abs, Map: m}, nil
}

// Resolve returns the essential files of task that exist on disk.
// Unresolved or missing patterns are logged and skipped; callers that need
// at least one essential file must check the result.
func (r *Resolver) Resolve(task string, args Args, latestDir string) PathSet {
	out := make(PathSet)
	spec, ok := r.Map[task]
	if !ok {
		logger.Warn().Str("task", task).Msg("essentials: no essential file spec for task")
		return out
	}

	table := BuildTable(args, latestDir)

	argNames := make([]string, 0, len(spec.Args))
	for name := range spec.Args {
		argNames = append(argNames, name)
	}
	sort.Strings(argNames)

	for _, name := range argNames {
		value := args[name]
		if !truthy(value) {
			continue
		}
		pattern := spec.Args[name]
		var rel string
		if pattern == docFilePattern {
			rel = fmt.Sprint(value)
		} else {
			var resolved bool
			rel, resolved = Substitute(pattern, table)
			if !resolved {
				logger.Warn().Str("task", task).Str("arg", name).Str("pattern", pattern).
					Msg("essentials: unresolved placeholder, skipping pattern")
				continue
			}
		}
		r.include(out, task, rel)
	}

	for _, pattern := range spec.Static {
		rel, resolved := Substitute(pattern, table)
		if !resolved {
			logger.Warn().Str("task", task).Str("pattern", pattern).
				Msg("essentials: unresolved placeholder, skipping pattern")
			continue
		}
		r.include(out, task, rel)
	}

	logger.Debug().Str("task", task).Int("files", out.Len()).Msg("essentials: resolved")
	return out
}

func (r *Resolver) include(out PathSet, task, rel string) {
	path := filepath.FromSlash(rel)
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Root, path)
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		logger.Warn().Str("task", task).Str("path", rel).Msg("essentials: file not found, skipping")
		return
	}
	out.Add(path)
}
