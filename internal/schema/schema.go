// Package schema normalizes and validates parsed noctivault documents.
//
// A document is either a local store (secret-mocks) or a reference
// configuration (secret-refs), never both. Validation happens in two
// stages: a structural pass against an embedded JSON schema, then a typed
// pass that enforces the semantic rules (supported platform, version
// bounds, identifier charset) and computes platform/project inheritance
// once, so downstream layers never re-derive it.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/pkg/provider"
	"gopkg.in/yaml.v3"
)

// ValueType is the declared cast type of a reference.
type ValueType string

const (
	TypeString ValueType = "str"
	TypeInt    ValueType = "int"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RefLeaf is a single secret reference with its fully inherited
// platform/project and final leaf key (cast).
type RefLeaf struct {
	Platform provider.Platform
	Project  string
	Cast     string
	Name     string
	Version  provider.Version
	Type     ValueType
}

// RefGroup is a named group of child entries. Groups nest arbitrarily.
type RefGroup struct {
	Key      string
	Children []RefEntry
}

// RefEntry is either a leaf or a group; exactly one field is set.
type RefEntry struct {
	Leaf  *RefLeaf
	Group *RefGroup
}

// MockEntry is a local stand-in value for one secret version. Platform and
// Project are already inherited from the document top level.
type MockEntry struct {
	Platform provider.Platform
	Project  string
	Name     string
	Value    string
	Version  int
}

// DocumentKind distinguishes the two document flavors.
type DocumentKind int

const (
	KindMocks DocumentKind = iota
	KindRefs
)

// Document is a validated, inheritance-normalized top-level document.
type Document struct {
	Platform provider.Platform
	Project  string
	Kind     DocumentKind
	Refs     []RefEntry
	Mocks    []MockEntry
}

// Validate parses and validates a raw document. It fails with
// CombinedConfigNotAllowedError when both secret-refs and secret-mocks are
// present, and SchemaValidationError for every other malformation.
func Validate(data []byte) (*Document, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nverrors.SchemaValidationError{Message: "not a valid YAML mapping: " + err.Error()}
	}
	if raw == nil {
		return nil, nverrors.SchemaValidationError{Message: "document is empty"}
	}

	_, hasRefs := raw["secret-refs"]
	_, hasMocks := raw["secret-mocks"]
	if hasRefs && hasMocks {
		return nil, nverrors.CombinedConfigNotAllowedError{}
	}
	if !hasRefs && !hasMocks {
		return nil, nverrors.SchemaValidationError{
			Message: "document contains neither secret-refs nor secret-mocks",
		}
	}

	if err := validateStructure(raw); err != nil {
		return nil, err
	}

	platform, project, err := topLevelIdentity(raw)
	if err != nil {
		return nil, err
	}

	doc := &Document{Platform: platform, Project: project}
	if hasMocks {
		doc.Kind = KindMocks
		doc.Mocks, err = parseMocks(raw["secret-mocks"], platform, project)
	} else {
		doc.Kind = KindRefs
		doc.Refs, err = parseRefs(raw["secret-refs"], platform, project)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// topLevelIdentity extracts the mandatory platform and project id. The
// project key is gcp_project_id with project_id accepted as an alias.
func topLevelIdentity(raw map[string]interface{}) (provider.Platform, string, error) {
	platform, ok := raw["platform"].(string)
	if !ok || platform == "" {
		return "", "", nverrors.SchemaValidationError{Field: "platform", Message: "required"}
	}
	p := provider.Platform(platform)
	if !p.Valid() {
		return "", "", nverrors.SchemaValidationError{Field: "platform", Message: "unsupported platform '" + platform + "'"}
	}
	project := stringField(raw, "gcp_project_id")
	if project == "" {
		project = stringField(raw, "project_id")
	}
	if project == "" {
		return "", "", nverrors.SchemaValidationError{Field: "gcp_project_id", Message: "required"}
	}
	return p, project, nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func parseMocks(v interface{}, platform provider.Platform, project string) ([]MockEntry, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, nverrors.SchemaValidationError{Field: "secret-mocks", Message: "must be a list"}
	}
	mocks := make([]MockEntry, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, nverrors.SchemaValidationError{
				Field:   fmt.Sprintf("secret-mocks[%d]", i),
				Message: "must be a mapping",
			}
		}
		entry := MockEntry{Platform: platform, Project: project}
		if p := stringField(m, "platform"); p != "" {
			ep := provider.Platform(p)
			if !ep.Valid() {
				return nil, nverrors.SchemaValidationError{
					Field:   fmt.Sprintf("secret-mocks[%d].platform", i),
					Message: "unsupported platform '" + p + "'",
				}
			}
			entry.Platform = ep
		}
		if proj := stringField(m, "gcp_project_id"); proj != "" {
			entry.Project = proj
		} else if proj := stringField(m, "project_id"); proj != "" {
			entry.Project = proj
		}
		entry.Name = stringField(m, "name")
		if entry.Name == "" {
			return nil, nverrors.SchemaValidationError{
				Field:   fmt.Sprintf("secret-mocks[%d].name", i),
				Message: "required",
			}
		}
		value, ok := m["value"]
		if !ok {
			return nil, nverrors.SchemaValidationError{
				Field:   fmt.Sprintf("secret-mocks[%d].value", i),
				Message: "required",
			}
		}
		entry.Value = scalarToString(value)
		version, ok := intValue(m["version"])
		if !ok || version < 1 {
			return nil, nverrors.SchemaValidationError{
				Field:   fmt.Sprintf("secret-mocks[%d].version", i),
				Message: "must be an integer >= 1",
			}
		}
		entry.Version = version
		mocks = append(mocks, entry)
	}
	return mocks, nil
}

func parseRefs(v interface{}, platform provider.Platform, project string) ([]RefEntry, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, nverrors.SchemaValidationError{Field: "secret-refs", Message: "must be a list"}
	}
	entries := make([]RefEntry, 0, len(items))
	for i, item := range items {
		entry, err := parseRefEntry(item, platform, project, fmt.Sprintf("secret-refs[%d]", i))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseRefEntry parses one entry, inheriting platform/project downward.
// An entry with a "key" field is a group; anything else must be a leaf.
func parseRefEntry(item interface{}, platform provider.Platform, project, field string) (RefEntry, error) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return RefEntry{}, nverrors.SchemaValidationError{Field: field, Message: "must be a mapping"}
	}

	if _, isGroup := m["key"]; isGroup {
		key := stringField(m, "key")
		if !identifierRe.MatchString(key) {
			return RefEntry{}, nverrors.SchemaValidationError{
				Field:   field + ".key",
				Message: "must match [A-Za-z_][A-Za-z0-9_]*",
			}
		}
		children, ok := m["children"].([]interface{})
		if !ok {
			return RefEntry{}, nverrors.SchemaValidationError{
				Field:   field + ".children",
				Message: "required list",
			}
		}
		group := &RefGroup{Key: key}
		for i, child := range children {
			parsed, err := parseRefEntry(child, platform, project, fmt.Sprintf("%s.children[%d]", field, i))
			if err != nil {
				return RefEntry{}, err
			}
			group.Children = append(group.Children, parsed)
		}
		return RefEntry{Group: group}, nil
	}

	leaf := &RefLeaf{Platform: platform, Project: project, Type: TypeString, Version: provider.Latest()}
	if p := stringField(m, "platform"); p != "" {
		ep := provider.Platform(p)
		if !ep.Valid() {
			return RefEntry{}, nverrors.SchemaValidationError{
				Field:   field + ".platform",
				Message: "unsupported platform '" + p + "'",
			}
		}
		leaf.Platform = ep
	}
	if proj := stringField(m, "gcp_project_id"); proj != "" {
		leaf.Project = proj
	} else if proj := stringField(m, "project_id"); proj != "" {
		leaf.Project = proj
	}
	leaf.Cast = stringField(m, "cast")
	if !identifierRe.MatchString(leaf.Cast) {
		return RefEntry{}, nverrors.SchemaValidationError{
			Field:   field + ".cast",
			Message: "must match [A-Za-z_][A-Za-z0-9_]*",
		}
	}
	leaf.Name = stringField(m, "ref")
	if leaf.Name == "" {
		return RefEntry{}, nverrors.SchemaValidationError{Field: field + ".ref", Message: "required"}
	}
	if v, ok := m["version"]; ok {
		version, err := parseVersion(v, field+".version")
		if err != nil {
			return RefEntry{}, err
		}
		leaf.Version = version
	}
	if t, ok := m["type"]; ok {
		ts, _ := t.(string)
		switch ValueType(ts) {
		case TypeString, TypeInt:
			leaf.Type = ValueType(ts)
		default:
			return RefEntry{}, nverrors.SchemaValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("must be one of [%s %s]", TypeString, TypeInt),
			}
		}
	}
	return RefEntry{Leaf: leaf}, nil
}

func parseVersion(v interface{}, field string) (provider.Version, error) {
	if s, ok := v.(string); ok {
		if s == "latest" {
			return provider.Latest(), nil
		}
		return provider.Version{}, nverrors.SchemaValidationError{
			Field:   field,
			Message: "must be a positive integer or 'latest'",
		}
	}
	n, ok := intValue(v)
	if !ok || n < 1 {
		return provider.Version{}, nverrors.SchemaValidationError{
			Field:   field,
			Message: "must be a positive integer or 'latest'",
		}
	}
	return provider.Exact(n), nil
}

// intValue accepts the integer representations yaml.v3 may produce.
// Floats are rejected: a mock version of 1.5 is invalid, not truncated.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}

// scalarToString renders any YAML scalar mock value as its string form.
func scalarToString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return strings.TrimSuffix(fmt.Sprintf("%v", v), "\n")
}
