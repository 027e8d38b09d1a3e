package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tfgRecruit/internal/database"
	"tfgRecruit/internal/form"
	"tfgRecruit/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a demo application form and campaigns",
	Long:  "Insert a published demo application form, an active campaign using it and a draft campaign without a form. Running it twice is a no-op.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return seedDemo(cmd.Context(), st, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

const demoFormTitle = "General Application"

type seedStore interface {
	ListForms(ctx context.Context, published *bool) ([]database.Form, error)
	CreateForm(ctx context.Context, in store.FormInput) (*database.Form, error)
	CreateCampaign(ctx context.Context, in store.CampaignInput) (*database.Campaign, error)
}

func demoFields() []form.Field {
	maxAbout := 2000
	return []form.Field{
		{ID: "full_name", Type: form.TypeText, Label: "Full Name", Required: true, Role: form.RoleName},
		{ID: "email", Type: form.TypeEmail, Label: "Email Address", Required: true, Role: form.RoleEmail},
		{ID: "phone", Type: form.TypeTel, Label: "Phone Number", Role: form.RolePhone},
		{ID: "position", Type: form.TypeSelect, Label: "Position", Required: true, Options: []string{"Backend Engineer", "Frontend Engineer", "Designer"}},
		{ID: "skills", Type: form.TypeCheckbox, Label: "Skills", Options: []string{"Go", "TypeScript", "SQL", "Figma"}},
		{ID: "resume", Type: form.TypeFile, Label: "Resume", Required: true, FileTypes: []string{".pdf", ".doc", ".docx"}},
		{ID: "about", Type: form.TypeTextarea, Label: "Tell us about yourself", Validation: &form.Validation{MaxLength: &maxAbout}},
		{ID: "start_date", Type: form.TypeDate, Label: "Earliest Start Date"},
	}
}

// seedDemo is idempotent on the demo form title.
func seedDemo(ctx context.Context, st seedStore, out io.Writer) error {
	existing, err := st.ListForms(ctx, nil)
	if err != nil {
		return err
	}
	for _, f := range existing {
		if f.Title == demoFormTitle {
			fmt.Fprintf(out, "demo data already present (form %s)\n", f.ID)
			return nil
		}
	}

	demo, err := st.CreateForm(ctx, store.FormInput{
		Title:       demoFormTitle,
		Description: "Apply for any open role.",
		Fields:      demoFields(),
		IsPublished: true,
	})
	if err != nil {
		return err
	}

	active, err := st.CreateCampaign(ctx, store.CampaignInput{
		Title:       "Spring Hiring",
		Description: "Engineering and design roles.",
		Status:      database.CampaignActive,
		FormID:      &demo.ID,
	})
	if err != nil {
		return err
	}
	draft, err := st.CreateCampaign(ctx, store.CampaignInput{
		Title:       "Internships",
		Description: "Form to be designed.",
		Status:      database.CampaignDraft,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "form %s %q (published)\n", demo.ID, demo.Title)
	fmt.Fprintf(out, "campaign %s %q (%s)\n", active.ID, active.Title, active.Status)
	fmt.Fprintf(out, "campaign %s %q (%s)\n", draft.ID, draft.Title, draft.Status)
	return nil
}
