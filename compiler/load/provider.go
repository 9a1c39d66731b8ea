package load

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a schema snapshot file.
type Format string

// Supported snapshot formats.
const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// FormatOf returns the snapshot format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".msgpack", ".mp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("schema file %q: unknown extension, want .json, .yaml, .yml, .msgpack or .mp", path)
	}
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatJSON, FormatYAML, FormatMsgpack:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown schema format %q", name)
	}
}

// FileProvider reads entities from a schema snapshot file. The file is read
// on every call so that a long-running watcher sees edits.
type FileProvider struct {
	Path string
}

// NewFileProvider returns a provider for the snapshot at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Entities implements SchemaProvider.
func (p *FileProvider) Entities(context.Context) ([]*Entity, error) {
	s, err := ReadSchemaFile(p.Path)
	if err != nil {
		return nil, err
	}
	return s.Entities, nil
}

// ReadSchemaFile decodes the snapshot at path, choosing the decoder from the
// file extension.
func ReadSchemaFile(path string) (*Schema, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	s, err := DecodeSchema(buf, format)
	if err != nil {
		return nil, fmt.Errorf("schema file %q: %w", path, err)
	}
	return s, nil
}

// DecodeSchema decodes a snapshot in the given format.
func DecodeSchema(buf []byte, format Format) (*Schema, error) {
	s := &Schema{}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(buf, s)
	case FormatYAML:
		err = yaml.Unmarshal(buf, s)
	case FormatMsgpack:
		err = msgpack.Unmarshal(buf, s)
	default:
		return nil, fmt.Errorf("unknown schema format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return s, nil
}

// EncodeSchema writes s to w in the given format.
func EncodeSchema(w io.Writer, s *Schema, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetSortMapKeys(true)
		if err := enc.Encode(s); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return fmt.Errorf("unknown schema format %q", format)
	}
}

// Snapshot reads every entity from p into a Schema.
func Snapshot(ctx context.Context, p SchemaProvider) (*Schema, error) {
	entities, err := p.Entities(ctx)
	if err != nil {
		return nil, err
	}
	return &Schema{Entities: entities}, nil
}
