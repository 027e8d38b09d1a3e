package intake

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"tfgRecruit/internal/database"
	"tfgRecruit/internal/form"
	"tfgRecruit/internal/store"
)

// Source loads the stored form and campaign a submission targets.
type Source interface {
	GetForm(ctx context.Context, id string) (*database.Form, error)
	GetCampaign(ctx context.Context, id string) (*database.Campaign, error)
}

// Uploader stores one selected file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, fieldID string, up Upload) (string, error)
}

// CandidateCreator persists the accepted application.
type CandidateCreator interface {
	CreateCandidate(ctx context.Context, in store.NewCandidate) (*database.Candidate, error)
}

// Receipt is the outcome of an accepted submission.
type Receipt struct {
	Candidate *database.Candidate
	// Dropped lists file fields whose upload failed and were left out of the answers.
	Dropped []string
}

// Submitter runs the two-phase public submission: uploads first, then the candidate write.
type Submitter struct {
	src      Source
	uploader Uploader
	creator  CandidateCreator
	logger   *slog.Logger
}

func NewSubmitter(src Source, uploader Uploader, creator CandidateCreator, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{src: src, uploader: uploader, creator: creator, logger: logger}
}

// Submit validates everything it can before touching storage, then uploads files concurrently.
// A failed upload omits that field; there is no rollback of uploads already stored.
func (s *Submitter) Submit(ctx context.Context, campaignID, formID string, sub Submission) (Receipt, error) {
	stored, err := s.src.GetForm(ctx, formID)
	if err != nil {
		return Receipt{}, err
	}
	if !stored.IsPublished {
		return Receipt{}, store.ErrFormNotPublished
	}
	schema, err := store.SchemaOf(*stored)
	if err != nil {
		return Receipt{}, err
	}

	sub.Answers = normalizeAnswers(schema, sub.Answers)
	if err := Validate(schema, sub); err != nil {
		return Receipt{}, err
	}
	identity, err := ResolveIdentity(schema, sub.Answers)
	if err != nil {
		return Receipt{}, err
	}
	if err := s.checkCampaign(ctx, campaignID, formID); err != nil {
		return Receipt{}, err
	}

	answers := make(form.Answers, len(sub.Answers))
	for k, v := range sub.Answers {
		answers[k] = v
	}

	urls, dropped := s.uploadAll(ctx, schema, sub.Files)
	var resumeURL *string
	for _, f := range schema.Fields {
		if f.Type != form.TypeFile {
			continue
		}
		url, ok := urls[f.ID]
		if !ok {
			continue
		}
		answers[f.ID] = form.Text(url)
		if resumeURL == nil {
			u := url
			resumeURL = &u
		}
	}

	candidate, err := s.creator.CreateCandidate(ctx, store.NewCandidate{
		CampaignID: campaignID,
		FormID:     formID,
		Answers:    answers,
		Email:      identity.Email,
		Name:       identity.Name,
		Phone:      identity.Phone,
		ResumeURL:  resumeURL,
	})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{Candidate: candidate, Dropped: dropped}, nil
}

// checkCampaign rejects closed or mismatched campaigns before any file is stored.
// CreateCandidate repeats the check inside its transaction.
func (s *Submitter) checkCampaign(ctx context.Context, campaignID, formID string) error {
	campaign, err := s.src.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrCampaignNotFound
		}
		return err
	}
	return store.CampaignAccepts(*campaign, formID)
}

func (s *Submitter) uploadAll(ctx context.Context, schema form.Schema, files map[string]Upload) (map[string]string, []string) {
	var (
		mu      sync.Mutex
		urls    = make(map[string]string, len(files))
		dropped []string
		g       errgroup.Group
	)
	for _, f := range schema.Fields {
		if f.Type != form.TypeFile {
			continue
		}
		up, ok := files[f.ID]
		if !ok || up.Open == nil {
			continue
		}
		fieldID := f.ID
		g.Go(func() error {
			url, err := s.uploader.Upload(ctx, fieldID, up)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("file upload failed, dropping field",
					slog.String("field_id", fieldID),
					slog.String("file_name", up.FileName),
					slog.Any("error", err),
				)
				dropped = append(dropped, fieldID)
				return nil
			}
			urls[fieldID] = url
			return nil
		})
	}
	_ = g.Wait()
	return urls, dropped
}

// normalizeAnswers turns a single posted value of a checkbox field into a one-item list.
func normalizeAnswers(schema form.Schema, answers form.Answers) form.Answers {
	out := make(form.Answers, len(answers))
	for k, v := range answers {
		out[k] = v
	}
	for _, f := range schema.Fields {
		v, ok := out[f.ID]
		if !ok || f.Type != form.TypeCheckbox || v.IsList() {
			continue
		}
		if v.Blank() {
			out[f.ID] = form.List()
			continue
		}
		out[f.ID] = form.List(v.String())
	}
	return out
}
