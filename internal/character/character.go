// Package character loads character cards from a local directory. A card
// is a YAML mapping with the persona's display name and reply templates;
// it may mount auxiliary module files that are shallow-merged into the
// card at load time.
package character

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Error kinds surfaced by the loader. Callers match them with errors.Is.
var (
	// ErrInvalidName marks a character name containing a path separator.
	ErrInvalidName = errors.New("invalid character name")
	// ErrNotFound marks a name with no card file in the directory.
	ErrNotFound = errors.New("character not found")
	// ErrPathEscape marks a card whose resolved path leaves the directory.
	ErrPathEscape = errors.New("character path escapes directory")
	// ErrMalformed marks an unparsable card, a card without a display
	// name, or an unresolvable module reference.
	ErrMalformed = errors.New("malformed character card")
)

// Templates holds the reply templates for one mood. A card may give a
// single template or a list; a list entry is chosen at random.
type Templates []string

func (t *Templates) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*t = Templates{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*t = Templates(list)
		return nil
	default:
		return fmt.Errorf("speech pattern must be a string or a list of strings")
	}
}

// BasicInfo carries the persona's identity fields.
type BasicInfo struct {
	StageName string `yaml:"stage_name"`
	RealName  string `yaml:"real_name"`
}

// ModuleRefs names the auxiliary module files mounted into a card.
type ModuleRefs struct {
	MountedModules []string `yaml:"mounted_modules"`
}

// Definition is a fully loaded character card, after module merging.
type Definition struct {
	BasicInfo      BasicInfo            `yaml:"basic_info"`
	SpeechPatterns map[string]Templates `yaml:"speech_patterns"`
	Modules        ModuleRefs           `yaml:"character_modules"`
}

// DisplayName returns the card's stage name, falling back to the real
// name. An empty result means the card is malformed.
func (d *Definition) DisplayName() string {
	if d.BasicInfo.StageName != "" {
		return d.BasicInfo.StageName
	}
	return d.BasicInfo.RealName
}

// readMapping reads a YAML file as a raw top-level mapping. The raw form
// is what module merging operates on.
func readMapping(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// decodeMapping re-encodes a raw mapping so the typed decode sees a
// single YAML document.
func decodeMapping(m map[string]any, out *Definition) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// merge overlays src on top of dst, top-level keys only. On collision the
// overlay wins (last writer wins). Neither input is modified.
func merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
