package character

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// modulesDir is the subdirectory holding mountable module files.
const modulesDir = "modules"

// Loader reads character cards from a fixed directory. The directory is
// the only place a card may come from; anything resolving outside it is
// rejected. Every Load re-reads the card from disk.
type Loader struct {
	dir string
	log *zap.Logger
}

// NewLoader returns a Loader rooted at dir.
func NewLoader(dir string, log *zap.Logger) *Loader {
	return &Loader{dir: dir, log: log}
}

// Resolve maps a character name to the card file that backs it. Names are
// lowercased; a name with a path separator is rejected before any
// filesystem access; .yaml is probed before .yml; the chosen path must
// still be inside the directory once symlinks are resolved.
func (l *Loader) Resolve(name string) (string, error) {
	name = strings.ToLower(name)
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}

	var candidate string
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(l.dir, name+ext)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			candidate = p
			break
		}
	}
	if candidate == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := l.contained(candidate); err != nil {
		return "", err
	}
	return candidate, nil
}

// contained verifies that path, after resolving symlinks and relative
// components, still lives under the loader's directory.
func (l *Loader) contained(path string) error {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir, err := filepath.EvalSymlinks(l.dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", l.dir, err)
	}
	rel, err := filepath.Rel(dir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	return nil
}

// Load resolves, parses, and merges a character card. Module files named
// by character_modules.mounted_modules are shallow-merged into the card
// mapping in listed order, later file winning on key collision.
func (l *Loader) Load(name string) (*Definition, error) {
	path, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}

	raw, err := readMapping(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}

	// The module list is read from the base card only; modules cannot
	// mount further modules.
	var head Definition
	if err := decodeMapping(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	for _, mod := range head.Modules.MountedModules {
		overlay, err := l.loadModule(mod)
		if err != nil {
			return nil, err
		}
		raw = merge(raw, overlay)
		l.log.Debug("merged character module",
			zap.String("character", name),
			zap.String("module", mod))
	}

	var def Definition
	if err := decodeMapping(raw, &def); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if def.DisplayName() == "" {
		return nil, fmt.Errorf("%w: %s: basic_info has no stage_name or real_name", ErrMalformed, name)
	}
	return &def, nil
}

// loadModule reads modules/Module_<name>.yaml as a raw mapping. Module
// references come from card content, not from the caller, so every
// failure here is malformed-content.
func (l *Loader) loadModule(mod string) (map[string]any, error) {
	if strings.ContainsAny(mod, `/\`) {
		return nil, fmt.Errorf("%w: module name %q contains a path separator", ErrMalformed, mod)
	}
	path := filepath.Join(l.dir, modulesDir, "Module_"+mod+".yaml")
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: module %q not found", ErrMalformed, mod)
	}
	if err := l.contained(path); err != nil {
		return nil, fmt.Errorf("%w: module %q: %v", ErrMalformed, mod, err)
	}
	m, err := readMapping(path)
	if err != nil {
		return nil, fmt.Errorf("%w: module %q: %v", ErrMalformed, mod, err)
	}
	return m, nil
}

// ListRoles returns the stems of the card files directly in the
// directory. Subdirectories (such as modules/) and non-card files are
// skipped; extensions match case-insensitively.
func (l *Loader) ListRoles() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	roles := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		roles = append(roles, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	return roles, nil
}
