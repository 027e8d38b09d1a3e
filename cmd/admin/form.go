package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tfgRecruit/internal/database"
	"tfgRecruit/internal/form"
	"tfgRecruit/internal/store"
)

type formStore interface {
	GetForm(ctx context.Context, id string) (*database.Form, error)
	ListForms(ctx context.Context, published *bool) ([]database.Form, error)
	UpdateForm(ctx context.Context, id string, in store.FormInput) (*database.Form, error)
	SetFormPublished(ctx context.Context, id string, published bool) (*database.Form, error)
}

// fieldFlags are the attribute flags shared by add-field and update-field.
type fieldFlags struct {
	fieldType   string
	label       string
	placeholder string
	helpText    string
	role        string
	required    bool
	options     []string
	fileTypes   []string
}

// patch builds a FieldPatch from the flags the user actually set.
func (f *fieldFlags) patch(cmd *cobra.Command) form.FieldPatch {
	var p form.FieldPatch
	changed := cmd.Flags().Changed
	if changed("type") {
		t := form.FieldType(f.fieldType)
		p.Type = &t
	}
	if changed("label") {
		p.Label = &f.label
	}
	if changed("placeholder") {
		p.Placeholder = &f.placeholder
	}
	if changed("help") {
		p.HelpText = &f.helpText
	}
	if changed("role") {
		r := form.Role(f.role)
		p.Role = &r
	}
	if changed("required") {
		p.Required = &f.required
	}
	if changed("options") {
		p.Options = f.options
	}
	if changed("file-types") {
		p.FileTypes = f.fileTypes
	}
	return p
}

func (f *fieldFlags) register(cmd *cobra.Command, withType bool) {
	if withType {
		cmd.Flags().StringVar(&f.fieldType, "type", "", "field type: text, email, tel, textarea, select, radio, checkbox, file or date")
	}
	cmd.Flags().StringVar(&f.label, "label", "", "display label")
	cmd.Flags().StringVar(&f.placeholder, "placeholder", "", "placeholder text")
	cmd.Flags().StringVar(&f.helpText, "help", "", "help text shown under the field")
	cmd.Flags().StringVar(&f.role, "role", "", "identity role: name, email or phone (empty clears it)")
	cmd.Flags().BoolVar(&f.required, "required", false, "answer is mandatory")
	cmd.Flags().StringSliceVar(&f.options, "options", nil, "choices for select, radio and checkbox fields")
	cmd.Flags().StringSliceVar(&f.fileTypes, "file-types", nil, "accepted extensions for file fields")
}

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Inspect and edit stored application forms",
}

var (
	formID    string
	fieldID   string
	moveIndex int
	unpublish bool
	addType   string
	addFlags  fieldFlags
	editFlags fieldFlags
)

var formListCmd = &cobra.Command{
	Use:   "list",
	Short: "List forms",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return listForms(cmd.Context(), st, cmd.OutOrStdout())
	},
}

var formShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a form's fields in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return showForm(cmd.Context(), st, cmd.OutOrStdout(), formID)
	},
}

var formAddFieldCmd = &cobra.Command{
	Use:   "add-field",
	Short: "Append a field with type defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		patch := addFlags.patch(cmd)
		var added form.Field
		err = editFields(cmd.Context(), st, formID, func(b *form.Builder) error {
			f, err := b.Add(form.FieldType(addType))
			if err != nil {
				return err
			}
			added = f
			return b.Update(f.ID, patch)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added field %s\n", added.ID)
		return nil
	},
}

var formUpdateFieldCmd = &cobra.Command{
	Use:   "update-field",
	Short: "Change attributes of a field",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		patch := editFlags.patch(cmd)
		return editFields(cmd.Context(), st, formID, func(b *form.Builder) error {
			return b.Update(fieldID, patch)
		})
	},
}

var formRemoveFieldCmd = &cobra.Command{
	Use:   "remove-field",
	Short: "Delete a field",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return editFields(cmd.Context(), st, formID, func(b *form.Builder) error {
			return b.Remove(fieldID)
		})
	},
}

var formMoveFieldCmd = &cobra.Command{
	Use:   "move-field",
	Short: "Move a field to a zero-based position",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return editFields(cmd.Context(), st, formID, func(b *form.Builder) error {
			return b.Move(fieldID, moveIndex)
		})
	},
}

var formPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a form, or unpublish it with --unpublish",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		row, err := st.SetFormPublished(cmd.Context(), formID, !unpublish)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "form %s published=%t\n", row.ID, row.IsPublished)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{formShowCmd, formAddFieldCmd, formUpdateFieldCmd, formRemoveFieldCmd, formMoveFieldCmd, formPublishCmd} {
		c.Flags().StringVar(&formID, "form", "", "form id (required)")
		_ = c.MarkFlagRequired("form")
	}
	for _, c := range []*cobra.Command{formUpdateFieldCmd, formRemoveFieldCmd, formMoveFieldCmd} {
		c.Flags().StringVar(&fieldID, "field", "", "field id (required)")
		_ = c.MarkFlagRequired("field")
	}

	formAddFieldCmd.Flags().StringVar(&addType, "type", "", "field type (required)")
	_ = formAddFieldCmd.MarkFlagRequired("type")
	addFlags.register(formAddFieldCmd, false)
	editFlags.register(formUpdateFieldCmd, true)
	formMoveFieldCmd.Flags().IntVar(&moveIndex, "index", 0, "target position, clamped to the field list")
	formPublishCmd.Flags().BoolVar(&unpublish, "unpublish", false, "take the form offline instead")

	formCmd.AddCommand(formListCmd, formShowCmd, formAddFieldCmd, formUpdateFieldCmd, formRemoveFieldCmd, formMoveFieldCmd, formPublishCmd)
	rootCmd.AddCommand(formCmd)
}

// editFields loads a form, applies edit through a Builder and saves the whole field list back.
func editFields(ctx context.Context, forms formStore, id string, edit func(*form.Builder) error) error {
	row, err := forms.GetForm(ctx, id)
	if err != nil {
		return fmt.Errorf("load form %s: %w", id, err)
	}
	fields, err := store.DecodeFields(row.Fields)
	if err != nil {
		return err
	}

	b := form.NewBuilder(fields)
	if err := edit(b); err != nil {
		return err
	}
	_, err = forms.UpdateForm(ctx, id, store.FormInput{
		Title:       row.Title,
		Description: row.Description,
		Fields:      b.Fields(),
		IsPublished: row.IsPublished,
	})
	return err
}

func listForms(ctx context.Context, forms formStore, out io.Writer) error {
	rows, err := forms.ListForms(ctx, nil)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPUBLISHED")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%t\n", r.ID, r.Title, r.IsPublished)
	}
	return w.Flush()
}

func showForm(ctx context.Context, forms formStore, out io.Writer, id string) error {
	row, err := forms.GetForm(ctx, id)
	if err != nil {
		return err
	}
	fields, err := store.DecodeFields(row.Fields)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (published=%t)\n", row.Title, row.IsPublished)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTYPE\tLABEL\tREQUIRED\tROLE")
	for i, f := range fields {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", i, f.ID, f.Type, f.Label, f.Required, f.Role)
	}
	return w.Flush()
}
