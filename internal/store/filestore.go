package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/hack-pad/hackpadfs"
	"github.com/kittclouds/plankitt/pkg/loader"
	"gopkg.in/yaml.v3"
)

// PlanDoc is the on-disk form of a plan: metadata plus the payload document.
type PlanDoc struct {
	ID             string `json:"id" yaml:"id"`
	Title          string `json:"title" yaml:"title"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	loader.Payload `yaml:",inline"`
}

// PlanFiles imports and exports plan documents in a directory of a
// hackpadfs filesystem (IndexedDB in the browser, mem or os elsewhere).
type PlanFiles struct {
	FS  hackpadfs.FS
	Dir string
}

// NewPlanFiles ensures dir exists on fs.
func NewPlanFiles(fs hackpadfs.FS, dir string) (*PlanFiles, error) {
	if err := hackpadfs.MkdirAll(fs, dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plan directory: %w", err)
	}
	return &PlanFiles{FS: fs, Dir: dir}, nil
}

// Export writes the plan as <dir>/<id>.<format> and returns the path.
func (f *PlanFiles) Export(rec *PlanRecord, format loader.Format) (string, error) {
	if rec == nil || rec.ID == "" {
		return "", errors.New("plan has no id")
	}
	if strings.ContainsAny(rec.ID, "/\\") {
		return "", fmt.Errorf("invalid plan id %q", rec.ID)
	}
	if format == "" {
		format = loader.FormatJSON
	}

	doc := PlanDoc{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Payload:     loader.FromGraph(rec.Nodes, rec.Connections),
	}
	if err := loader.Validate(doc.Payload); err != nil {
		return "", err
	}
	data, err := encodeDoc(doc, format)
	if err != nil {
		return "", err
	}

	name := path.Join(f.Dir, rec.ID+"."+string(format))
	if err := hackpadfs.WriteFullFile(f.FS, name, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write plan file: %w", err)
	}
	return name, nil
}

// Import reads and validates a plan file. name is relative to the directory.
// The returned record is unversioned; hand it to a Storer to persist it.
func (f *PlanFiles) Import(name string) (*PlanRecord, error) {
	data, err := hackpadfs.ReadFile(f.FS, path.Join(f.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	doc, err := decodeDoc(data, loader.FormatFromPath(name))
	if err != nil {
		return nil, err
	}
	if err := loader.Validate(doc.Payload); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = strings.TrimSuffix(name, path.Ext(name))
	}

	rec := &PlanRecord{}
	rec.ID = doc.ID
	rec.Title = doc.Title
	rec.Description = doc.Description
	rec.Nodes, rec.Connections = doc.Payload.Graph()
	return rec, nil
}

// List returns the plan file names in the directory, sorted.
func (f *PlanFiles) List() ([]string, error) {
	entries, err := hackpadfs.ReadDir(f.FS, f.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan files: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch path.Ext(e.Name()) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes a plan file. Missing files are ignored.
func (f *PlanFiles) Remove(name string) error {
	err := hackpadfs.Remove(f.FS, path.Join(f.Dir, name))
	if err != nil && !errors.Is(err, hackpadfs.ErrNotExist) {
		return fmt.Errorf("failed to remove plan file: %w", err)
	}
	return nil
}

func encodeDoc(doc PlanDoc, format loader.Format) ([]byte, error) {
	switch format {
	case loader.FormatYAML:
		return yaml.Marshal(doc)
	case loader.FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func decodeDoc(data []byte, format loader.Format) (PlanDoc, error) {
	var doc PlanDoc
	var err error
	if format == loader.FormatYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return PlanDoc{}, fmt.Errorf("failed to decode plan file: %w", err)
	}
	return doc, nil
}
