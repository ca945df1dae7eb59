// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Manager persists individual settings back to the config file.
// Edits are applied to the YAML node tree so operator comments and ordering survive.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// SaveGeofenceReference writes the reference zone to the file atomically.
func (m *Manager) SaveGeofenceReference(lat, lng, radiusM float64) error {
	return m.Set(map[string]string{
		"geofence.center_lat": strconv.FormatFloat(lat, 'f', -1, 64),
		"geofence.center_lng": strconv.FormatFloat(lng, 'f', -1, 64),
		"geofence.radius_m":   strconv.FormatFloat(radiusM, 'f', -1, 64),
	})
}

// Set assigns scalar values addressed by dotted keys and writes the file atomically.
// The result must still decode strictly into AppConfig.
func (m *Manager) Set(values map[string]string) error {
	if m.configPath == "" {
		return ErrNoConfigFile
	}

	var doc yaml.Node
	// #nosec G304 -- operator-provided config path
	data, err := os.ReadFile(m.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	case err != nil:
		return fmt.Errorf("read config: %w", err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("config root is not a mapping")
	}

	for key, value := range values {
		setScalar(root, strings.Split(key, "."), value)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_ = enc.Close()

	probe := Defaults()
	if err := decodeStrict(buf.Bytes(), &probe); err != nil {
		return fmt.Errorf("refusing to write invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	if err := renameio.WriteFile(m.configPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setScalar(node *yaml.Node, path []string, value string) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != path[0] {
			continue
		}
		child := node.Content[i+1]
		if len(path) == 1 {
			*child = yaml.Node{Kind: yaml.ScalarNode, Value: value, LineComment: child.LineComment}
			return
		}
		if child.Kind != yaml.MappingNode {
			*child = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		setScalar(child, path[1:], value)
		return
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: path[0]}
	if len(path) == 1 {
		node.Content = append(node.Content, keyNode, &yaml.Node{Kind: yaml.ScalarNode, Value: value})
		return
	}
	child := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	node.Content = append(node.Content, keyNode, child)
	setScalar(child, path[1:], value)
}
