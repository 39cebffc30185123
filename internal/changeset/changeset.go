// Package changeset builds ChangeSets from descriptors, unified diffs and git refs.
package changeset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a ChangeSet descriptor.
type Format string

// Supported descriptor encodings.
const (
	JSONFormat Format = "json"
	YAMLFormat Format = "yaml"
)

// FormatFor picks the descriptor encoding from a file extension. Unknown extensions are JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLFormat
	default:
		return JSONFormat
	}
}

// Load builds the ChangeSet selected by cfg and merges the ticket file when one is set.
func Load(ctx context.Context, cfg *contract.Config, client contract.GitClient) (schema.ChangeSet, error) {
	var cs schema.ChangeSet
	var err error
	switch {
	case cfg.ChangeSetPath != "":
		cs, err = LoadDescriptor(cfg.ChangeSetPath)
	case cfg.DiffPath != "":
		cs, err = LoadDiff(cfg.DiffPath, cfg.DiffContent)
	case cfg.BaseRef != "":
		cs, err = FromRefs(ctx, client, cfg.RepoPath, cfg.BaseRef, cfg.TargetRef)
	default:
		return cs, fmt.Errorf("%w: no ChangeSet source given", schema.ErrConfig)
	}
	if err != nil {
		return cs, err
	}

	if cfg.TicketPath != "" {
		if err := MergeTicket(&cs, cfg.TicketPath); err != nil {
			return cs, err
		}
	}
	if err := Normalize(&cs); err != nil {
		return cs, err
	}
	return cs, nil
}

// LoadDescriptor reads a JSON or YAML descriptor. "-" reads JSON from stdin.
func LoadDescriptor(path string) (schema.ChangeSet, error) {
	data, err := readSource(path)
	if err != nil {
		return schema.ChangeSet{}, err
	}
	cs, err := ParseDescriptor(data, FormatFor(path))
	if err != nil {
		return cs, fmt.Errorf("%s: %w", path, err)
	}
	if cs.ID == "" {
		cs.ID = idFromPath(path)
	}
	return cs, nil
}

// idFromPath derives a ChangeSet ID from a file name. Stdin yields no ID.
func idFromPath(path string) string {
	if path == "-" {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ParseDescriptor decodes a descriptor. Unknown JSON fields are rejected.
func ParseDescriptor(data []byte, format Format) (schema.ChangeSet, error) {
	var cs schema.ChangeSet
	switch format {
	case YAMLFormat:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cs); err != nil && err != io.EOF {
			return cs, fmt.Errorf("%w: invalid YAML descriptor: %v", schema.ErrConfig, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cs); err != nil {
			return cs, fmt.Errorf("%w: invalid JSON descriptor: %v", schema.ErrConfig, err)
		}
	}
	return cs, nil
}

// ticketFile is the side file that adds ticket metadata to a diff or git-ref ChangeSet.
type ticketFile struct {
	ID                      string          `yaml:"id"`
	Title                   string          `yaml:"title"`
	Description             string          `yaml:"description"`
	DeclaredLayer           schema.Layer    `yaml:"declaredLayer"`
	EstimatedHours          *float64        `yaml:"estimatedHours"`
	PhaseMarkers            []string        `yaml:"phaseMarkers"`
	AcceptanceCriteria      string          `yaml:"acceptanceCriteria"`
	MultiLayerJustification string          `yaml:"multiLayerJustification"`
	Override                schema.Override `yaml:"override"`
}

// MergeTicket copies the non-empty fields of a ticket YAML file onto cs.
func MergeTicket(cs *schema.ChangeSet, path string) error {
	data, err := readSource(path)
	if err != nil {
		return err
	}
	var t ticketFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && err != io.EOF {
		return fmt.Errorf("%w: invalid ticket file %s: %v", schema.ErrConfig, path, err)
	}

	setString(&cs.ID, t.ID)
	setString(&cs.Title, t.Title)
	setString(&cs.Description, t.Description)
	setString(&cs.AcceptanceCriteria, t.AcceptanceCriteria)
	setString(&cs.MultiLayerJustification, t.MultiLayerJustification)
	if t.DeclaredLayer != "" {
		cs.DeclaredLayer = t.DeclaredLayer
	}
	if t.EstimatedHours != nil {
		cs.EstimatedHours = t.EstimatedHours
	}
	if len(t.PhaseMarkers) > 0 {
		cs.PhaseMarkers = t.PhaseMarkers
	}
	if t.Override != "" {
		cs.Override = t.Override
	}
	return nil
}

// Normalize fills defaults and rejects descriptors the engine cannot analyze.
func Normalize(cs *schema.ChangeSet) error {
	if cs.ID == "" {
		cs.ID = "changeset"
	}
	if cs.DeclaredLayer != "" {
		cs.DeclaredLayer = schema.Layer(strings.ToLower(string(cs.DeclaredLayer)))
		if _, ok := schema.ValidLayers[cs.DeclaredLayer]; !ok {
			return fmt.Errorf("%w: invalid declaredLayer %q", schema.ErrConfig, cs.DeclaredLayer)
		}
	}
	cs.Override = schema.Override(strings.ToLower(string(cs.Override)))
	if _, ok := schema.ValidOverrides[cs.Override]; !ok {
		return fmt.Errorf("%w: invalid override %q", schema.ErrConfig, cs.Override)
	}
	if cs.EstimatedHours != nil && *cs.EstimatedHours < 0 {
		return fmt.Errorf("%w: estimatedHours cannot be negative", schema.ErrConfig)
	}

	seen := make(map[string]bool, len(cs.Files))
	for i := range cs.Files {
		fc := &cs.Files[i]
		fc.Path = filepath.ToSlash(strings.TrimPrefix(strings.TrimSpace(fc.Path), "./"))
		if fc.Path == "" {
			return fmt.Errorf("%w: files[%d] has no path", schema.ErrConfig, i)
		}
		if seen[fc.Path] {
			return fmt.Errorf("%w: duplicate file %q", schema.ErrConfig, fc.Path)
		}
		seen[fc.Path] = true

		switch fc.Kind {
		case "":
			fc.Kind = schema.Modified
		case schema.Added, schema.Modified, schema.Deleted:
		default:
			return fmt.Errorf("%w: files[%d] has invalid kind %q", schema.ErrConfig, i, fc.Kind)
		}
		if fc.LineCount < 0 {
			return fmt.Errorf("%w: files[%d] has a negative lineCount", schema.ErrConfig, i)
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// readSource reads a file, or stdin for "-".
func readSource(path string) ([]byte, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", schema.ErrConfig, path, err)
	}
	return data, nil
}
