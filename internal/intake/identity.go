package intake

import (
	"fmt"
	"strings"

	"tfgRecruit/internal/form"
)

// Identity is the applicant contact data lifted out of the loose answers.
type Identity struct {
	Name  string
	Email string
	Phone *string
}

// IdentityError reports which identity attribute could not be resolved.
type IdentityError struct {
	Role form.Role
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("Could not determine the applicant's %s from the form", e.Role)
}

// fallbackType is the field type consulted when no field carries the role explicitly.
var fallbackType = map[form.Role]form.FieldType{
	form.RoleName:  form.TypeText,
	form.RoleEmail: form.TypeEmail,
	form.RolePhone: form.TypeTel,
}

// identityField picks the first field marked with role, else the first field of the fallback type.
func identityField(schema form.Schema, role form.Role) (form.Field, bool) {
	for _, f := range schema.Fields {
		if f.Role == role {
			return f, true
		}
	}
	want := fallbackType[role]
	for _, f := range schema.Fields {
		if f.Type == want {
			return f, true
		}
	}
	return form.Field{}, false
}

func identityValue(schema form.Schema, answers form.Answers, role form.Role) string {
	f, ok := identityField(schema, role)
	if !ok {
		return ""
	}
	return strings.TrimSpace(answers[f.ID].String())
}

// ResolveIdentity extracts name, email and the optional phone. Name and email must be non-empty.
func ResolveIdentity(schema form.Schema, answers form.Answers) (Identity, error) {
	id := Identity{
		Name:  identityValue(schema, answers, form.RoleName),
		Email: identityValue(schema, answers, form.RoleEmail),
	}
	if id.Name == "" {
		return Identity{}, &IdentityError{Role: form.RoleName}
	}
	if id.Email == "" {
		return Identity{}, &IdentityError{Role: form.RoleEmail}
	}
	if phone := identityValue(schema, answers, form.RolePhone); phone != "" {
		id.Phone = &phone
	}
	return id, nil
}
