package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/util"
)

type Format string

const JSON_FORMAT Format = "json"
const YAML_FORMAT Format = "yaml"

func ToFormat(f string) Format {
	switch strings.ToLower(f) {
	case "yaml", "yml":
		return YAML_FORMAT
	case "json":
		return JSON_FORMAT
	}
	return ""
}

// ImportError rejects an import file.
type ImportError struct {
	Message string
}

func (e ImportError) Error() string {
	return "invalid import file: " + e.Message
}

func Export(fl model.Flow, now time.Time) model.ExportFile {
	steps := fl.Steps
	if steps == nil {
		steps = []model.Step{}
	}
	links := fl.Links
	if links == nil {
		links = []model.Link{}
	}
	return model.ExportFile{
		Name:       fl.Name,
		Steps:      steps,
		Links:      links,
		ExportedAt: now.UTC(),
		Version:    model.EXPORT_VERSION,
	}
}

type importFile struct {
	Name       string          `json:"name"`
	Nodes      json.RawMessage `json:"nodes"`
	Edges      json.RawMessage `json:"edges"`
	ExportedAt *time.Time      `json:"exportedAt"`
	Version    string          `json:"version"`
}

// DecodeImport parses an export file. An empty format is detected from the
// content. The returned file still carries the ids it was written with.
func DecodeImport(data []byte, format Format) (*model.ExportFile, error) {
	if len(format) == 0 {
		format = detect(data)
	}
	if format == YAML_FORMAT {
		converted, err := util.YamlToJson(data)
		if err != nil {
			return nil, ImportError{Message: err.Error()}
		}
		data = converted
	}
	var raw importFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ImportError{Message: err.Error()}
	}
	if len(strings.TrimSpace(raw.Name)) == 0 {
		return nil, ImportError{Message: "name is missing"}
	}
	if isAbsent(raw.Nodes) {
		return nil, ImportError{Message: "nodes are missing"}
	}
	if isAbsent(raw.Edges) {
		return nil, ImportError{Message: "edges are missing"}
	}
	file := &model.ExportFile{Name: raw.Name, Version: raw.Version}
	if raw.ExportedAt != nil {
		file.ExportedAt = *raw.ExportedAt
	}
	if err := json.Unmarshal(raw.Nodes, &file.Steps); err != nil {
		return nil, ImportError{Message: fmt.Sprintf("nodes: %s", err.Error())}
	}
	if err := json.Unmarshal(raw.Edges, &file.Links); err != nil {
		return nil, ImportError{Message: fmt.Sprintf("edges: %s", err.Error())}
	}
	return file, nil
}

// Imported turns a decoded file into a new flow with fresh ids.
func Imported(file *model.ExportFile, newId util.IdGenerator) model.Flow {
	steps, links := Regenerate(file.Steps, file.Links, newId)
	return model.Flow{
		Name:  file.Name,
		Steps: steps,
		Links: links,
	}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func detect(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return JSON_FORMAT
	}
	return YAML_FORMAT
}
