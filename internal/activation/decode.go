package activation

import (
	_ "embed"
	"fmt"

	"github.com/agentx-labs/unithost/internal/schema"
	"go.yaml.in/yaml/v3"
)

//go:embed schema/record.schema.json
var recordSchemaBytes []byte

var recordSchema = schema.New("record.schema.json", recordSchemaBytes)

// Pair is one raw key/value pair as stored, before normalization.
type Pair struct {
	Key   string
	Value string
	// KeyOK is false when the stored key is not a string (a number, a
	// boolean, null, an alias or a collection).
	KeyOK bool
	// ValueOK is false when the stored value is not a string scalar.
	ValueOK bool
	Line    int
}

// DecodeResult is the typed form of a stored record payload.
type DecodeResult struct {
	// ShapeValid is false when the payload is not a mapping at all. Pairs is
	// empty in that case.
	ShapeValid bool
	// Pairs are the stored pairs in document order.
	Pairs []Pair
	// Issues lists everything the record schema rejects. Issues do not
	// invalidate the shape; individual bad pairs are handled by the caller.
	Issues []schema.Issue
}

// Decode parses a stored record payload.
func Decode(data []byte) DecodeResult {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return DecodeResult{Issues: []schema.Issue{{Keyword: "yaml", Message: fmt.Sprintf("parsing YAML: %v", err)}}}
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return DecodeResult{Issues: []schema.Issue{{
			Keyword: "type",
			Message: fmt.Sprintf("record must be a mapping, got %s", kindName(root)),
		}}}
	}

	res := DecodeResult{ShapeValid: true}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		res.Pairs = append(res.Pairs, Pair{
			Key:     k.Value,
			Value:   v.Value,
			KeyOK:   isString(k),
			ValueOK: isString(v) || isTimestamp(v),
			Line:    k.Line,
		})
	}

	result, err := recordSchema.ValidateYAML(data)
	switch {
	case err != nil:
		res.Issues = append(res.Issues, schema.Issue{Keyword: "yaml", Message: err.Error()})
	case !result.Valid:
		res.Issues = append(res.Issues, result.Issues...)
	}
	return res
}

// Encode renders entries as a YAML mapping, preserving order.
func Encode(entries Entries) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(entries) == 0 {
		root.Style = yaml.FlowStyle
	}
	for _, e := range entries {
		// The !!str tag makes the encoder quote keys such as "null" or
		// "true" that would otherwise read back as another type.
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Value, Style: yaml.DoubleQuotedStyle},
		)
	}
	data, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return data, nil
}

func isString(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

// Unquoted dates resolve to !!timestamp; they are still string values as far
// as the record is concerned.
func isTimestamp(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp"
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return "null"
		}
		return "scalar " + n.ShortTag()
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	case 0:
		return "empty document"
	default:
		return "unknown node"
	}
}
