package form

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
)

// ErrFieldNotFound is returned when a builder operation names an unknown field id.
var ErrFieldNotFound = errors.New("field not found")

var lastFieldID atomic.Int64

// nextFieldID returns a millisecond timestamp id that is unique within the process,
// even when several fields are added in the same millisecond.
func nextFieldID(now time.Time) string {
	ms := now.UnixMilli()
	for {
		prev := lastFieldID.Load()
		next := ms
		if next <= prev {
			next = prev + 1
		}
		if lastFieldID.CompareAndSwap(prev, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}

// Builder edits a form's field list in memory. Persisting is a full replace by the caller.
type Builder struct {
	fields []Field
	now    func() time.Time
}

// NewBuilder starts editing a copy of fields.
func NewBuilder(fields []Field) *Builder {
	return &Builder{fields: cloneFields(fields), now: time.Now}
}

// Fields returns a copy of the current field list.
func (b *Builder) Fields() []Field {
	return cloneFields(b.fields)
}

// Add appends a field of type t with type-appropriate defaults.
func (b *Builder) Add(t FieldType) (Field, error) {
	if !t.Valid() {
		return Field{}, fmt.Errorf("unknown field type %q", t)
	}
	f := Field{
		ID:    nextFieldID(b.now()),
		Type:  t,
		Label: fmt.Sprintf("New %s field", t),
	}
	applyTypeDefaults(&f)
	b.fields = append(b.fields, f)
	return cloneField(f), nil
}

// FieldPatch carries the attributes Update replaces. Nil members are left alone.
type FieldPatch struct {
	Type        *FieldType
	Label       *string
	Placeholder *string
	Required    *bool
	Options     []string
	FileTypes   []string
	HelpText    *string
	Validation  *Validation
	Role        *Role
}

// Update replaces attributes of the field with the given id.
func (b *Builder) Update(id string, patch FieldPatch) error {
	i := b.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	f := b.fields[i]
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return fmt.Errorf("unknown field type %q", *patch.Type)
		}
		if *patch.Type != f.Type {
			f.Type = *patch.Type
			f.Options = nil
			f.FileTypes = nil
			applyTypeDefaults(&f)
		}
	}
	if patch.Label != nil {
		f.Label = *patch.Label
	}
	if patch.Placeholder != nil {
		f.Placeholder = *patch.Placeholder
	}
	if patch.Required != nil {
		f.Required = *patch.Required
	}
	if patch.Options != nil {
		f.Options = append([]string{}, patch.Options...)
	}
	if patch.FileTypes != nil {
		f.FileTypes = append([]string{}, patch.FileTypes...)
	}
	if patch.HelpText != nil {
		f.HelpText = *patch.HelpText
	}
	if patch.Validation != nil {
		v := *patch.Validation
		f.Validation = &v
	}
	if patch.Role != nil {
		f.Role = *patch.Role
	}
	b.fields[i] = f
	return nil
}

// Remove deletes the field with the given id.
func (b *Builder) Remove(id string) error {
	i := b.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	b.fields = append(b.fields[:i], b.fields[i+1:]...)
	return nil
}

// Move places the field with the given id at index, shifting the others. The index is clamped.
func (b *Builder) Move(id string, index int) error {
	i := b.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
	}
	f := b.fields[i]
	rest := append(b.fields[:i:i], b.fields[i+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(rest) {
		index = len(rest)
	}
	out := make([]Field, 0, len(b.fields))
	out = append(out, rest[:index]...)
	out = append(out, f)
	out = append(out, rest[index:]...)
	b.fields = out
	return nil
}

func (b *Builder) index(id string) int {
	for i, f := range b.fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func applyTypeDefaults(f *Field) {
	switch {
	case f.Type.HasOptions():
		f.Options = []string{"Option 1", "Option 2"}
	case f.Type == TypeFile:
		f.FileTypes = []string{".pdf", ".doc", ".docx"}
	}
}

func cloneFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = cloneField(f)
	}
	return out
}

func cloneField(f Field) Field {
	if f.Options != nil {
		f.Options = append([]string{}, f.Options...)
	}
	if f.FileTypes != nil {
		f.FileTypes = append([]string{}, f.FileTypes...)
	}
	if f.Validation != nil {
		v := *f.Validation
		f.Validation = &v
	}
	return f
}
