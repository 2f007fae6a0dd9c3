package models

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml presets/*.png
var builtinPresets embed.FS

// DefaultPresetName is used when no preset is requested
const DefaultPresetName = "iOS Default"

// PresetFile represents the on-disk preset structure
type PresetFile struct {
	Name           string           `yaml:"name" json:"name"`
	Description    string           `yaml:"description" json:"description"`
	BackgroundFile string           `yaml:"backgroundFile" json:"-"`
	Config         LockScreenConfig `yaml:"config" json:"config"`

	// Runtime fields (not in file)
	Source  string `yaml:"-" json:"source"`
	BuiltIn bool   `yaml:"-" json:"builtIn"`
}

// PresetSummary is the list view of a preset
type PresetSummary struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Device      DeviceType     `json:"device"`
	OS          OSType         `json:"os"`
	Background  BackgroundType `json:"backgroundType"`
	BuiltIn     bool           `json:"builtIn"`
}

// LoadPreset loads a preset yaml from fsys, resolving backgroundFile relative to it
func LoadPreset(fsys fs.FS, name string) (*PresetFile, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var preset PresetFile
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to parse preset file: %w", err)
	}
	if strings.TrimSpace(preset.Name) == "" {
		return nil, fmt.Errorf("preset %s has no name", name)
	}

	if preset.BackgroundFile != "" {
		img, err := fs.ReadFile(fsys, path.Join(path.Dir(name), preset.BackgroundFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read background for preset %q: %w", preset.Name, err)
		}
		uri, err := ImageDataURI(img)
		if err != nil {
			return nil, fmt.Errorf("invalid background for preset %q: %w", preset.Name, err)
		}
		preset.Config.Background = uri
		preset.Config.BackgroundType = BackgroundImage
	}

	preset.Config = preset.Config.Clone()
	preset.Source = name

	if err := checkPreset(&preset); err != nil {
		return nil, err
	}
	return &preset, nil
}

func checkPreset(p *PresetFile) error {
	if !p.Config.Device.Valid() {
		return fmt.Errorf("preset %q: unknown device %q", p.Name, p.Config.Device)
	}
	if !p.Config.OS.Valid() {
		return fmt.Errorf("preset %q: unknown os %q", p.Name, p.Config.OS)
	}
	if err := CheckBackground(p.Config.BackgroundType, p.Config.Background); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	return nil
}

// PresetRegistry manages the collection of available presets
type PresetRegistry struct {
	presets map[string]*PresetFile
}

// NewPresetRegistry creates a registry holding the built-in presets
func NewPresetRegistry() (*PresetRegistry, error) {
	r := &PresetRegistry{presets: make(map[string]*PresetFile)}
	if _, errs := r.load(builtinPresets, "presets", true); len(errs) > 0 {
		return nil, fmt.Errorf("failed to load built-in presets: %w", errors.Join(errs...))
	}
	return r, nil
}

// LoadDir adds every *.yaml preset found in dir. Presets that fail to load are
// skipped and reported in the returned error list; a preset may override a
// built-in one with the same name.
func (r *PresetRegistry) LoadDir(dir string) (int, []error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, []error{fmt.Errorf("failed to read presets directory: %w", err)}
	}
	return r.load(os.DirFS(dir), ".", false)
}

func (r *PresetRegistry) load(fsys fs.FS, dir string, builtIn bool) (int, []error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return 0, []error{fmt.Errorf("failed to read presets directory: %w", err)}
	}

	var errs []error
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		preset, err := LoadPreset(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		preset.BuiltIn = builtIn
		r.presets[preset.Name] = preset
		loaded++
	}
	return loaded, errs
}

// Get returns a fresh copy of the named preset's config
func (r *PresetRegistry) Get(name string) (LockScreenConfig, bool) {
	preset, ok := r.presets[name]
	if !ok {
		return LockScreenConfig{}, false
	}
	return preset.Config.Clone(), true
}

// DefaultFor returns the preset used as the default for an OS style. Presets
// named "... Default" win over other presets of the same style.
func (r *PresetRegistry) DefaultFor(style OSType) (string, bool) {
	fallback := ""
	for _, name := range r.Names() {
		if r.presets[name].Config.OS != style {
			continue
		}
		if strings.HasSuffix(name, " Default") {
			return name, true
		}
		if fallback == "" {
			fallback = name
		}
	}
	return fallback, fallback != ""
}

// Names returns the preset names sorted alphabetically
func (r *PresetRegistry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns summaries of all presets
func (r *PresetRegistry) List() []PresetSummary {
	var out []PresetSummary
	for _, name := range r.Names() {
		p := r.presets[name]
		out = append(out, PresetSummary{
			Name:        p.Name,
			Description: p.Description,
			Device:      p.Config.Device,
			OS:          p.Config.OS,
			Background:  p.Config.BackgroundType,
			BuiltIn:     p.BuiltIn,
		})
	}
	return out
}

// Count returns the number of presets
func (r *PresetRegistry) Count() int {
	return len(r.presets)
}
