// Package template decodes CloudFormation templates in either JSON or YAML
// form into models.Template.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

// ErrNoResources is returned for documents without a Resources section.
var ErrNoResources = errors.New("template has no Resources section")

// Parse decodes data as JSON, falling back to YAML when it is not valid JSON.
// YAML short-form intrinsic functions (!Ref, !GetAtt, !Sub, ...) are expanded
// to their long form so both encodings produce the same document.
func Parse(data []byte) (*models.Template, error) {
	var tpl models.Template
	if jsonErr := json.Unmarshal(data, &tpl); jsonErr != nil {
		doc, err := decodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("decode template: not JSON (%v) and not YAML: %w", jsonErr, err)
		}
		// Round-trip through JSON so numbers and maps have the same Go
		// types as in the JSON path.
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("normalise YAML template: %w", err)
		}
		if err := json.Unmarshal(raw, &tpl); err != nil {
			return nil, fmt.Errorf("decode YAML template: %w", err)
		}
	}
	if tpl.Resources == nil {
		return nil, ErrNoResources
	}
	return &tpl, nil
}

func decodeYAML(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return convertNode(&root)
}

// convertNode turns a yaml.Node tree into plain maps, slices and scalars.
func convertNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return convertNode(n.Content[0])

	case yaml.AliasNode:
		return convertNode(n.Alias)

	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := convertNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return wrapIntrinsic(n, m), nil

	case yaml.SequenceNode:
		s := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convertNode(c)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		return wrapIntrinsic(n, s), nil

	case yaml.ScalarNode:
		if intrinsicName(n.Tag) != "" {
			if n.Tag == "!GetAtt" {
				// !GetAtt Resource.Attribute is the list form in long syntax.
				return map[string]any{"Fn::GetAtt": strings.SplitN(n.Value, ".", 2)}, nil
			}
			return wrapIntrinsic(n, n.Value), nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

// wrapIntrinsic wraps v in {"Fn::Name": v} when n carries a CloudFormation
// short-form tag; otherwise v is returned unchanged.
func wrapIntrinsic(n *yaml.Node, v any) any {
	name := intrinsicName(n.Tag)
	if name == "" {
		return v
	}
	return map[string]any{name: v}
}

// intrinsicName maps a local tag such as "!Sub" to "Fn::Sub". "!Ref" and
// "!Condition" have no Fn:: prefix in long form. Standard "!!" tags map to "".
func intrinsicName(tag string) string {
	if !strings.HasPrefix(tag, "!") || strings.HasPrefix(tag, "!!") {
		return ""
	}
	name := strings.TrimPrefix(tag, "!")
	switch name {
	case "":
		return ""
	case "Ref", "Condition":
		return name
	default:
		return "Fn::" + name
	}
}
