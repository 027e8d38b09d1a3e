package intake

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"tfgRecruit/internal/form"
)

// Upload is a file selected for a file field, not yet stored.
type Upload struct {
	FileName    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Submission is what an applicant sends: answers keyed by field id plus selected files.
type Submission struct {
	Answers form.Answers
	Files   map[string]Upload
}

// ValidationError names the first field that blocked a submission.
type ValidationError struct {
	FieldID string
	Label   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks required answers in form order and stops at the first failure.
// A required file field is satisfied by a selected file or by an already stored file URL.
// Author-declared length and pattern constraints apply to non-empty scalar answers.
func Validate(schema form.Schema, sub Submission) error {
	for _, f := range schema.Fields {
		value, answered := sub.Answers[f.ID]
		present := answered && !value.Blank()
		if f.Type == form.TypeFile {
			if up, ok := sub.Files[f.ID]; ok && up.Open != nil {
				present = true
			}
		}
		if f.Required && !present {
			return &ValidationError{
				FieldID: f.ID,
				Label:   f.Label,
				Message: fmt.Sprintf("Please fill in the required field: %s", f.Label),
			}
		}
		if !answered || value.IsList() || value.Blank() || f.Validation == nil || f.Type == form.TypeFile {
			continue
		}
		if err := checkConstraints(f, value.String()); err != nil {
			return err
		}
	}
	return nil
}

func checkConstraints(f form.Field, s string) error {
	v := f.Validation
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if v.MinLength != nil && n < *v.MinLength {
		return &ValidationError{FieldID: f.ID, Label: f.Label, Message: fmt.Sprintf("%s must be at least %d characters", f.Label, *v.MinLength)}
	}
	if v.MaxLength != nil && n > *v.MaxLength {
		return &ValidationError{FieldID: f.ID, Label: f.Label, Message: fmt.Sprintf("%s must be at most %d characters", f.Label, *v.MaxLength)}
	}
	if v.Pattern != "" {
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			return nil
		}
		if !re.MatchString(s) {
			return &ValidationError{FieldID: f.ID, Label: f.Label, Message: fmt.Sprintf("%s has an invalid format", f.Label)}
		}
	}
	return nil
}
