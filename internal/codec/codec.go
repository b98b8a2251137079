// Package codec decodes the JSON and YAML documents the engine reads
// (fee schedules, static price files, ticker payloads).
package codec

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"frizo/fee_risk_engine/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFromPath .json -> JSON, .yaml/.yml -> YAML.
func FormatFromPath(path string) (Format, error) {
	switch utils.Ext(path) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unsupported file extension %q (want .json, .yaml or .yml)", path)
	}
}

// Decode reads the whole document and unmarshals it into v.
func Decode(r io.Reader, format Format, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s document: %w", format, err)
	}
	return Unmarshal(data, format, v)
}

func Unmarshal(data []byte, format Format, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("empty %s document", format)
	}
	switch format {
	case JSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	case YAML:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}

// IsList reports whether the document's top-level value is a list.
func IsList(data []byte, format Format) bool {
	switch format {
	case JSON:
		trimmed := bytes.TrimSpace(data)
		return len(trimmed) > 0 && trimmed[0] == '['
	case YAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil || len(node.Content) == 0 {
			return false
		}
		return node.Content[0].Kind == yaml.SequenceNode
	default:
		return false
	}
}

// Number a numeric field that may be written as a number or a string.
// A missing or null value leaves Set false.
type Number struct {
	Text string
	Set  bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = Number{}
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	*n = Number{Text: strings.TrimSpace(s), Set: true}
	return nil
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number, got a %s", node.Line, kindName(node.Kind))
	}
	if node.ShortTag() == "!!null" {
		*n = Number{}
		return nil
	}
	*n = Number{Text: strings.TrimSpace(node.Value), Set: true}
	return nil
}

// Decimal parses the text; the field name only feeds the error message.
func (n Number) Decimal(field string) (decimal.Decimal, error) {
	if !n.Set {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(n.Text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal, got %q", field, n.Text)
	}
	return d, nil
}

// DecimalOr like Decimal, but returns def when the value is absent.
func (n Number) DecimalOr(field string, def decimal.Decimal) (decimal.Decimal, error) {
	if !n.Set {
		return def, nil
	}
	return n.Decimal(field)
}

// Timestamp accepts unix milliseconds (number or string) or RFC 3339.
type Timestamp struct {
	Time time.Time
	Set  bool
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var n Number
	if err := n.UnmarshalJSON(b); err != nil {
		return err
	}
	return t.parse(n)
}

func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	var n Number
	if err := n.UnmarshalYAML(node); err != nil {
		return err
	}
	return t.parse(n)
}

func (t *Timestamp) parse(n Number) error {
	if !n.Set || n.Text == "" {
		*t = Timestamp{}
		return nil
	}
	if ms, err := strconv.ParseInt(n.Text, 10, 64); err == nil {
		*t = Timestamp{Time: time.UnixMilli(ms).UTC(), Set: true}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, n.Text)
	if err != nil {
		return fmt.Errorf("timestamp must be unix millis or RFC 3339, got %q", n.Text)
	}
	*t = Timestamp{Time: parsed.UTC(), Set: true}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "scalar"
	}
}
