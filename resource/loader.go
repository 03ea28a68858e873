package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"
)

var levelFileRegex = regexp.MustCompile(`^([a-z0-9][a-z0-9_\-]*)\.(json|ya?ml)$`)

// Loader reads level files from a directory.
type Loader struct {
	Dir    string
	logger *zap.Logger
}

// NewLoader creates a Loader for dir.
func NewLoader(dir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Dir: dir, logger: logger}
}

// LoadAll parses every level file in the directory, sorted by name.
// Files whose names do not look like levels are skipped.
func (l *Loader) LoadAll() ([]*Level, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("resource: readdir %s: %w", l.Dir, err)
	}
	var out []*Level
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !levelFileRegex.MatchString(e.Name()) {
			continue
		}
		lvl, err := LoadFile(filepath.Join(l.Dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[lvl.Name()]; dup {
			return nil, fmt.Errorf("%w: level %q defined in both %s and %s", ErrInvalidLevel, lvl.Name(), prev, e.Name())
		}
		seen[lvl.Name()] = e.Name()
		out = append(out, lvl)
		l.logger.Debug("level loaded", zap.String("name", lvl.Name()), zap.String("file", e.Name()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// LoadFile parses one level file. The format follows the extension.
func LoadFile(path string) (*Level, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, fmt.Errorf("resource: %s: unsupported extension", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read %s: %w", path, err)
	}
	lvl, err := ParseLevel(raw, format)
	if err != nil {
		return nil, fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return lvl, nil
}
