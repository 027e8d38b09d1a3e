package form

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed fields.schema.json
var fieldsSchema string

var fieldsSchemaLoader = gojsonschema.NewStringLoader(fieldsSchema)

// Problem is one defect found in a submitted field list.
type Problem struct {
	Path    string
	Message string
}

// DefinitionError rejects a malformed field list at the write boundary.
type DefinitionError struct {
	Problems []Problem
}

func (e *DefinitionError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Path+": "+p.Message)
	}
	return "invalid field definitions: " + strings.Join(parts, "; ")
}

// ParseFields validates raw field JSON and decodes it. Empty input yields an empty list.
func ParseFields(raw []byte) ([]Field, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []Field{}, nil
	}

	result, err := gojsonschema.Validate(fieldsSchemaLoader, gojsonschema.NewStringLoader(trimmed))
	if err != nil {
		return nil, &DefinitionError{Problems: []Problem{{Path: "(root)", Message: err.Error()}}}
	}
	if !result.Valid() {
		defErr := &DefinitionError{Problems: make([]Problem, 0, len(result.Errors()))}
		for _, desc := range result.Errors() {
			path := desc.Field()
			if path == "" {
				path = "(root)"
			}
			defErr.Problems = append(defErr.Problems, Problem{Path: path, Message: desc.Description()})
		}
		return nil, defErr
	}

	var fields []Field
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := CheckFields(fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// CheckFields enforces the rules JSON Schema cannot express: unique ids and compilable patterns.
// It also re-checks the structural rules so fields built in Go get the same treatment.
func CheckFields(fields []Field) error {
	var problems []Problem
	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		path := fmt.Sprintf("%d", i)
		id := strings.TrimSpace(f.ID)
		switch {
		case id == "":
			problems = append(problems, Problem{Path: path + ".id", Message: "id must not be empty"})
		default:
			if prev, dup := seen[id]; dup {
				problems = append(problems, Problem{Path: path + ".id", Message: fmt.Sprintf("duplicate id %q (also at %d)", id, prev)})
			}
			seen[id] = i
		}
		if !f.Type.Valid() {
			problems = append(problems, Problem{Path: path + ".type", Message: fmt.Sprintf("unknown type %q", f.Type)})
		}
		if f.Type.HasOptions() && len(f.Options) == 0 {
			problems = append(problems, Problem{Path: path + ".options", Message: "options must not be empty"})
		}
		if !f.Type.HasOptions() && len(f.Options) > 0 {
			problems = append(problems, Problem{Path: path + ".options", Message: fmt.Sprintf("options are not allowed on %s fields", f.Type)})
		}
		if f.Type != TypeFile && len(f.FileTypes) > 0 {
			problems = append(problems, Problem{Path: path + ".file_types", Message: "file_types are only allowed on file fields"})
		}
		if f.Role != "" && f.Role != RoleName && f.Role != RoleEmail && f.Role != RolePhone {
			problems = append(problems, Problem{Path: path + ".role", Message: fmt.Sprintf("unknown role %q", f.Role)})
		}
		if v := f.Validation; v != nil {
			if v.Pattern != "" {
				if _, err := regexp.Compile(v.Pattern); err != nil {
					problems = append(problems, Problem{Path: path + ".validation.pattern", Message: err.Error()})
				}
			}
			if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
				problems = append(problems, Problem{Path: path + ".validation", Message: "minLength exceeds maxLength"})
			}
		}
	}
	if len(problems) > 0 {
		return &DefinitionError{Problems: problems}
	}
	return nil
}
