// Package intake turns a published form into public controls and accepts applications against it.
package intake

import (
	"strings"

	"tfgRecruit/internal/form"
)

// Control kinds understood by the public application page.
const (
	KindInput         = "input"
	KindTextarea      = "textarea"
	KindSelect        = "select"
	KindRadioGroup    = "radio-group"
	KindCheckboxGroup = "checkbox-group"
	KindFile          = "file"
)

// Control describes how one field is presented to an applicant.
type Control struct {
	FieldID     string   `json:"field_id"`
	Kind        string   `json:"kind"`
	InputType   string   `json:"input_type,omitempty"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder,omitempty"`
	HelpText    string   `json:"help_text,omitempty"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
	Accept      string   `json:"accept,omitempty"`
	Multiple    bool     `json:"multiple,omitempty"`
}

// Render produces one control per field in form order.
func Render(schema form.Schema) []Control {
	controls := make([]Control, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		c := Control{
			FieldID:     f.ID,
			Label:       f.Label,
			Placeholder: f.Placeholder,
			HelpText:    f.HelpText,
			Required:    f.Required,
		}
		switch f.Type {
		case form.TypeTextarea:
			c.Kind = KindTextarea
		case form.TypeSelect:
			c.Kind = KindSelect
			c.Options = append([]string{}, f.Options...)
		case form.TypeRadio:
			c.Kind = KindRadioGroup
			c.Options = append([]string{}, f.Options...)
		case form.TypeCheckbox:
			c.Kind = KindCheckboxGroup
			c.Options = append([]string{}, f.Options...)
			c.Multiple = true
		case form.TypeFile:
			c.Kind = KindFile
			c.Accept = strings.Join(f.FileTypes, ",")
		default:
			c.Kind = KindInput
			c.InputType = string(f.Type)
		}
		controls = append(controls, c)
	}
	return controls
}
