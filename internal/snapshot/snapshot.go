// Package snapshot encodes and decodes full task list snapshots for
// persistence, export and import.
//
// The document is an array of tasks:
//
//	[
//	  {
//	    "text": "Buy milk",
//	    "completed": false,
//	    "subtasks": [
//	      {"text": "2% milk", "completed": true}
//	    ]
//	  }
//	]
//
// Written files use 2-space indentation and a trailing newline. Imports are
// validated against an embedded JSON Schema before decoding; IDs are never
// part of the document.
package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fentz26/tasklet/internal/models"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// MediaType is the only media type accepted for import.
const MediaType = "application/json"

var (
	// ErrFormat is returned when a document is not a valid snapshot.
	ErrFormat = errors.New("invalid snapshot format")
	// ErrMediaType is returned when an import file is not JSON.
	ErrMediaType = errors.New("please select a valid JSON file")
	// ErrEmptyName is returned when an export base name is empty.
	ErrEmptyName = errors.New("file name cannot be empty")
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "https://tasklet.local/snapshot.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add snapshot schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// UnmarshalText lets a Format be decoded from configuration values.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// Encode serialises list in the given format.
func Encode(list models.TaskList, f Format) ([]byte, error) {
	doc := normalize(list)
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

// Decode parses and validates a JSON snapshot. Texts are trimmed; an entry
// whose text is empty is rejected.
func Decode(data []byte) (models.TaskList, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFormat, schemaMessage(err))
	}

	var list models.TaskList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	for i := range list {
		list[i].Text = models.CleanText(list[i].Text)
		if list[i].Text == "" {
			return nil, fmt.Errorf("%w: task %d has empty text", ErrFormat, i+1)
		}
		if list[i].Subtasks == nil {
			list[i].Subtasks = []models.Subtask{}
		}
		for j := range list[i].Subtasks {
			st := &list[i].Subtasks[j]
			st.Text = models.CleanText(st.Text)
			if st.Text == "" {
				return nil, fmt.Errorf("%w: subtask %d.%d has empty text", ErrFormat, i+1, j+1)
			}
		}
	}
	if list == nil {
		list = models.TaskList{}
	}
	return list, nil
}

// CheckMediaType rejects files whose extension does not map to JSON.
func CheckMediaType(name string) error {
	ext := filepath.Ext(name)
	mt := mime.TypeByExtension(ext)
	if base, _, _ := strings.Cut(mt, ";"); base != MediaType {
		return fmt.Errorf("%w: %s", ErrMediaType, filepath.Base(name))
	}
	return nil
}

// ReadFile checks the media type of path, then reads and decodes it. The
// path "-" reads from r instead.
func ReadFile(path string, r io.Reader) (models.TaskList, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		if err := CheckMediaType(path); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(data)
}

// FileName builds the export file name from a user-supplied base name.
func FileName(base string, f Format) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", ErrEmptyName
	}
	return base + f.Ext(), nil
}

func normalize(list models.TaskList) models.TaskList {
	doc := list.Clone()
	for i := range doc {
		if doc[i].Subtasks == nil {
			doc[i].Subtasks = []models.Subtask{}
		}
	}
	return doc
}

func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var msgs []string
	collectSchemaErrors(&msgs, ve)
	return strings.Join(msgs, "; ")
}

func collectSchemaErrors(msgs *[]string, ve *jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		loc := strings.TrimPrefix(ve.InstanceLocation, "/")
		if loc == "" {
			*msgs = append(*msgs, ve.Message)
			return
		}
		*msgs = append(*msgs, fmt.Sprintf("%s: %s", loc, ve.Message))
		return
	}
	for _, cause := range ve.Causes {
		collectSchemaErrors(msgs, cause)
	}
}
