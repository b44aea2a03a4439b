// Package devices loads the list of known biometric terminals from YAML.
package devices

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Device struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Inet string `yaml:"inet" json:"inet"`
	Port int    `yaml:"port" json:"port"`
	MAC  string `yaml:"mac" json:"mac,omitempty"`
}

type Registry struct {
	Devices []Device `yaml:"devices"`
}

// Load reads the registry at path. An empty path or a missing file yields an
// empty registry.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return &Registry{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("devices: read file %s: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(b, &reg); err != nil {
		return nil, fmt.Errorf("devices: parse yaml: %w", err)
	}
	seen := make(map[string]struct{}, len(reg.Devices))
	for i, d := range reg.Devices {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, fmt.Errorf("devices: devices[%d].id must be set", i)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("devices: duplicate device id %q", d.ID)
		}
		if d.Port < 0 || d.Port > 65535 {
			return nil, fmt.Errorf("devices: devices[%d].port out of range", i)
		}
		seen[d.ID] = struct{}{}
		reg.Devices[i] = d
	}
	return &reg, nil
}

// Default returns the first configured device.
func (r *Registry) Default() (Device, bool) {
	if r == nil || len(r.Devices) == 0 {
		return Device{}, false
	}
	return r.Devices[0], true
}

func (r *Registry) Find(id string) (Device, bool) {
	if r == nil {
		return Device{}, false
	}
	for _, d := range r.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

func (r *Registry) List() []Device {
	if r == nil {
		return []Device{}
	}
	out := make([]Device, len(r.Devices))
	copy(out, r.Devices)
	return out
}
