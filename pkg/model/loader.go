package model

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotDirectory is returned by LoadDir when the path is not a directory.
var ErrNotDirectory = errors.New("models path is not a directory")

// ddfFile is the OMA DDF XML layout.
type ddfFile struct {
	Objects []ddfObject `xml:"Object"`
}

type ddfObject struct {
	Name              string    `xml:"Name"`
	Description       string    `xml:"Description1"`
	ObjectID          int       `xml:"ObjectID"`
	ObjectVersion     string    `xml:"ObjectVersion"`
	MultipleInstances string    `xml:"MultipleInstances"`
	Mandatory         string    `xml:"Mandatory"`
	Items             []ddfItem `xml:"Resources>Item"`
}

type ddfItem struct {
	ID                int    `xml:"ID,attr"`
	Name              string `xml:"Name"`
	Operations        string `xml:"Operations"`
	MultipleInstances string `xml:"MultipleInstances"`
	Mandatory         string `xml:"Mandatory"`
	Type              string `xml:"Type"`
	Units             string `xml:"Units"`
	Description       string `xml:"Description"`
}

// yamlFile is the YAML definition layout.
type yamlFile struct {
	Objects []yamlObject `yaml:"objects"`
}

type yamlObject struct {
	ID          int            `yaml:"id"`
	Name        string         `yaml:"name"`
	Version     string         `yaml:"version"`
	Multiple    bool           `yaml:"multiple"`
	Mandatory   bool           `yaml:"mandatory"`
	Description string         `yaml:"description"`
	Resources   []yamlResource `yaml:"resources"`
}

type yamlResource struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	Operations  string `yaml:"operations"`
	Multiple    bool   `yaml:"multiple"`
	Mandatory   bool   `yaml:"mandatory"`
	Type        string `yaml:"type"`
	Units       string `yaml:"units"`
	Description string `yaml:"description"`
}

// LoadDir reads every definition file in dir.
// Files are processed in name order; a later definition of the same object
// ID replaces an earlier one.
func LoadDir(dir string) ([]*ObjectModel, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]*ObjectModel)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		var models []*ObjectModel
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".xml":
			models, err = loadDDF(path)
		case ".yaml", ".yml":
			models, err = loadYAML(path)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		for _, m := range models {
			byID[m.ID] = m
		}
	}

	return sortedModels(byID), nil
}

// Merge overlays models on base; entries in models replace same-ID entries in base.
func Merge(base []*ObjectModel, models ...[]*ObjectModel) []*ObjectModel {
	byID := make(map[int]*ObjectModel, len(base))
	for _, m := range base {
		byID[m.ID] = m
	}
	for _, set := range models {
		for _, m := range set {
			byID[m.ID] = m
		}
	}
	return sortedModels(byID)
}

func sortedModels(byID map[int]*ObjectModel) []*ObjectModel {
	out := make([]*ObjectModel, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func loadDDF(path string) ([]*ObjectModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc ddfFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse DDF: %w", err)
	}
	if len(doc.Objects) == 0 {
		return nil, errors.New("no object definitions")
	}

	models := make([]*ObjectModel, 0, len(doc.Objects))
	for _, o := range doc.Objects {
		m := &ObjectModel{
			ID:          o.ObjectID,
			Name:        strings.TrimSpace(o.Name),
			Version:     strings.TrimSpace(o.ObjectVersion),
			Multiple:    isMultiple(o.MultipleInstances),
			Mandatory:   isMandatory(o.Mandatory),
			Description: strings.TrimSpace(o.Description),
			Resources:   make(map[int]*ResourceModel, len(o.Items)),
		}
		for _, item := range o.Items {
			typ, err := ParseResourceType(item.Type)
			if err != nil {
				return nil, fmt.Errorf("object %d resource %d: %w", o.ObjectID, item.ID, err)
			}
			m.Resources[item.ID] = &ResourceModel{
				ID:          item.ID,
				Name:        strings.TrimSpace(item.Name),
				Operations:  ParseOperations(item.Operations),
				Multiple:    isMultiple(item.MultipleInstances),
				Mandatory:   isMandatory(item.Mandatory),
				Type:        typ,
				Units:       strings.TrimSpace(item.Units),
				Description: strings.TrimSpace(item.Description),
			}
		}
		models = append(models, m)
	}
	return models, nil
}

func loadYAML(path string) ([]*ObjectModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	models := make([]*ObjectModel, 0, len(doc.Objects))
	for _, o := range doc.Objects {
		m := &ObjectModel{
			ID:          o.ID,
			Name:        o.Name,
			Version:     o.Version,
			Multiple:    o.Multiple,
			Mandatory:   o.Mandatory,
			Description: o.Description,
			Resources:   make(map[int]*ResourceModel, len(o.Resources)),
		}
		for _, r := range o.Resources {
			typ, err := ParseResourceType(r.Type)
			if err != nil {
				return nil, fmt.Errorf("object %d resource %d: %w", o.ID, r.ID, err)
			}
			m.Resources[r.ID] = &ResourceModel{
				ID:          r.ID,
				Name:        r.Name,
				Operations:  ParseOperations(r.Operations),
				Multiple:    r.Multiple,
				Mandatory:   r.Mandatory,
				Type:        typ,
				Units:       r.Units,
				Description: r.Description,
			}
		}
		models = append(models, m)
	}
	return models, nil
}

func isMultiple(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "Multiple")
}

func isMandatory(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "Mandatory")
}
