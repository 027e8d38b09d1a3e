// Package form models the dynamic application form: an ordered list of typed
// field definitions authored in the builder and answered by applicants.
package form

// FieldType is the closed set of input kinds a form may contain.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypeTel      FieldType = "tel"
	TypeTextarea FieldType = "textarea"
	TypeSelect   FieldType = "select"
	TypeRadio    FieldType = "radio"
	TypeCheckbox FieldType = "checkbox"
	TypeFile     FieldType = "file"
	TypeDate     FieldType = "date"
)

// FieldTypes lists every supported type in builder palette order.
var FieldTypes = []FieldType{
	TypeText, TypeEmail, TypeTel, TypeTextarea, TypeSelect,
	TypeRadio, TypeCheckbox, TypeFile, TypeDate,
}

// Valid reports whether t belongs to the closed set.
func (t FieldType) Valid() bool {
	for _, known := range FieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HasOptions reports whether answers are picked from Options.
func (t FieldType) HasOptions() bool {
	return t == TypeSelect || t == TypeRadio || t == TypeCheckbox
}

// Role marks a field as the source of a candidate identity attribute.
type Role string

const (
	RoleName  Role = "name"
	RoleEmail Role = "email"
	RolePhone Role = "phone"
)

// Validation holds optional author-declared constraints on scalar answers.
type Validation struct {
	Pattern   string `json:"pattern,omitempty"`
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
}

// Field is one input of a form. ID must stay stable once answers reference it.
type Field struct {
	ID          string      `json:"id"`
	Type        FieldType   `json:"type"`
	Label       string      `json:"label"`
	Placeholder string      `json:"placeholder,omitempty"`
	Required    bool        `json:"required"`
	Options     []string    `json:"options,omitempty"`
	FileTypes   []string    `json:"file_types,omitempty"`
	HelpText    string      `json:"help_text,omitempty"`
	Validation  *Validation `json:"validation,omitempty"`
	Role        Role        `json:"role,omitempty"`
}

// Schema is the domain view of a stored form.
type Schema struct {
	ID          string
	Title       string
	Description string
	Fields      []Field
	IsPublished bool
}

// Field returns the field with the given id.
func (s Schema) Field(id string) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}
