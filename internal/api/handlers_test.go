package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfgRecruit/internal/database"
	"tfgRecruit/internal/events"
	"tfgRecruit/internal/intake"
	"tfgRecruit/internal/report"
	"tfgRecruit/internal/store"
	"tfgRecruit/internal/tasks"
)

func TestHealthAndAuthGate(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/forms", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorMessage(t, w))
}

func TestFormRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/forms", map[string]any{
		"title": "Backend Engineer",
		"fields": []map[string]any{
			{"id": "name", "type": "text", "label": "Full Name", "required": true},
			{"id": "level", "type": "select", "label": "Level", "options": []string{"Junior", "Senior"}},
		},
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[formView](t, w)
	assert.Len(t, created.Fields, 2)
	assert.False(t, created.IsPublished)

	w = env.do(t, http.MethodPost, "/api/forms", map[string]any{
		"title":  "Broken",
		"fields": []map[string]any{{"id": "a", "type": "text", "label": "A", "options": []string{"x"}}},
	}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/forms", map[string]any{"description": "no title"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/forms/"+created.ID+"/fields", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPatch, "/api/forms/"+created.ID+"/publish", map[string]any{"is_published": true}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[formView](t, w).IsPublished)

	w = env.do(t, http.MethodGet, "/api/forms/"+created.ID+"/fields", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Backend Engineer", decode[formView](t, w).Title)

	w = env.do(t, http.MethodGet, "/api/forms/"+created.ID+"/render", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	rendered := decode[renderResponse](t, w)
	require.Len(t, rendered.Controls, 2)
	assert.Equal(t, intake.KindSelect, rendered.Controls[1].Kind)

	w = env.do(t, http.MethodPost, "/api/forms/"+created.ID+"/duplicate", nil, true)
	require.Equal(t, http.StatusCreated, w.Code)
	dup := decode[formView](t, w)
	assert.Equal(t, "Backend Engineer (Copy)", dup.Title)
	assert.False(t, dup.IsPublished)

	w = env.do(t, http.MethodGet, "/api/forms?is_published=true", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]formView](t, w), 1)

	w = env.do(t, http.MethodGet, "/api/forms?is_published=false", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	drafts := decode[[]formView](t, w)
	require.Len(t, drafts, 1)
	assert.Equal(t, dup.ID, drafts[0].ID)

	w = env.do(t, http.MethodGet, "/api/forms?is_published=maybe", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	drafts = decode[[]formView](t, w)
	require.Len(t, drafts, 1)
	assert.Equal(t, dup.ID, drafts[0].ID)

	w = env.do(t, http.MethodGet, "/api/forms", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]formView](t, w), 2)

	w = env.do(t, http.MethodPut, "/api/forms/"+uuid.NewString(), map[string]any{"title": "x"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/forms/"+dup.ID, nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, "/api/forms/"+dup.ID, nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCampaignRoutes(t *testing.T) {
	env := newTestEnv(t)
	f, _ := env.seedCampaign(t, database.CampaignActive)

	w := env.do(t, http.MethodPost, "/api/campaigns", map[string]any{"title": "No form", "status": "active"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/campaigns", map[string]any{"title": "Bad", "status": "archived"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/campaigns", map[string]any{"title": "Ghost", "form_id": uuid.NewString()}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/campaigns", map[string]any{"title": "Autumn hiring", "form_id": f.ID}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[campaignView](t, w)
	assert.Equal(t, database.CampaignDraft, created.Status)

	w = env.do(t, http.MethodGet, "/api/campaigns/by-form/"+f.ID, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[campaignView](t, w).ID)

	w = env.do(t, http.MethodGet, "/api/campaigns/by-form/"+uuid.NewString(), nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, "/api/campaigns/"+created.ID, map[string]any{"title": "Autumn hiring", "status": "paused", "form_id": f.ID}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, database.CampaignPaused, decode[campaignView](t, w).Status)

	w = env.do(t, http.MethodGet, "/api/campaigns", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]campaignView](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "Engineer", list[0].FormTitle)
	require.NotNil(t, list[0].CandidateCount)

	w = env.do(t, http.MethodGet, "/api/campaigns/"+uuid.NewString(), nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/campaigns/"+created.ID, nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCreateCandidate(t *testing.T) {
	env := newTestEnv(t)
	f, c := env.seedCampaign(t, database.CampaignActive)
	_, paused := env.seedCampaign(t, database.CampaignPaused)

	valid := map[string]any{
		"campaign_id": c.ID,
		"form_id":     f.ID,
		"email":       "jane@example.com",
		"name":        "Jane Doe",
		"data":        map[string]any{"name": "Jane Doe", "email": "jane@example.com", "skills": []string{"Go"}},
	}

	w := env.do(t, http.MethodPost, "/api/candidates", map[string]any{"campaign_id": c.ID}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", errorMessage(t, w))

	ghost := copyBody(valid)
	ghost["campaign_id"] = uuid.NewString()
	w = env.do(t, http.MethodPost, "/api/candidates", ghost, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Campaign not found", errorMessage(t, w))

	inactive := copyBody(valid)
	inactive["campaign_id"] = paused.ID
	inactive["form_id"] = *paused.FormID
	w = env.do(t, http.MethodPost, "/api/candidates", inactive, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Campaign is not active", errorMessage(t, w))

	incomplete := copyBody(valid)
	incomplete["data"] = map[string]any{"email": "jane@example.com"}
	w = env.do(t, http.MethodPost, "/api/candidates", incomplete, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please fill in the required field: Full Name", errorMessage(t, w))

	w = env.do(t, http.MethodPost, "/api/candidates", valid, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[candidateView](t, w)
	assert.Equal(t, database.StatusPending, created.Status)
	assert.JSONEq(t, `{"name":"Jane Doe","email":"jane@example.com","skills":["Go"]}`, string(created.Data))

	require.Len(t, env.publisher.events, 1)
	assert.Equal(t, events.TypeCandidateCreated, env.publisher.events[0].Type)
}

func copyBody(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func TestApplyWithFileUpload(t *testing.T) {
	env := newTestEnv(t)
	f, c := env.seedCampaign(t, database.CampaignActive)

	w := env.multipart(t, "/api/forms/"+f.ID+"/apply",
		map[string][]string{"email": {"jane@example.com"}},
		nil,
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please fill in the required field: Full Name", errorMessage(t, w))

	w = env.multipart(t, "/api/forms/"+f.ID+"/apply",
		map[string][]string{"name": {"Jane Doe"}, "email": {"jane@example.com"}, "skills": {"Go"}},
		map[string][]byte{"cv": []byte("%PDF-1.4")},
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[applyResponse](t, w)
	assert.Empty(t, resp.DroppedFields)
	assert.Equal(t, c.ID, resp.Candidate.CampaignID)
	assert.Equal(t, "Jane Doe", resp.Candidate.Name)
	require.NotNil(t, resp.Candidate.ResumeURL)
	assert.True(t, strings.HasPrefix(*resp.Candidate.ResumeURL, "https://files.test/"))
	assert.Contains(t, *resp.Candidate.ResumeURL, "cv_resume.pdf")
	assert.Contains(t, string(resp.Candidate.Data), `"skills":["Go"]`)

	w = env.multipart(t, "/api/forms/"+uuid.NewString()+"/apply",
		map[string][]string{"name": {"Jane"}, "email": {"jane@example.com"}}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplyDropsOversizedFile(t *testing.T) {
	env := newTestEnv(t)
	f, _ := env.seedCampaign(t, database.CampaignActive)

	w := env.multipart(t, "/api/forms/"+f.ID+"/apply",
		map[string][]string{"name": {"Jane Doe"}, "email": {"jane@example.com"}},
		map[string][]byte{"cv": make([]byte, testUploadLimit+1)},
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[applyResponse](t, w)
	assert.Equal(t, []string{"cv"}, resp.DroppedFields)
	assert.Nil(t, resp.Candidate.ResumeURL)
}

func TestApplyUrlencoded(t *testing.T) {
	env := newTestEnv(t)
	f, c := env.seedCampaign(t, database.CampaignActive)

	w := env.urlencoded(t, "/api/forms/"+f.ID+"/apply", url.Values{
		"name":     {"Jane Doe"},
		"email":    {"jane@example.com"},
		"skills[]": {"Go", "SQL"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[applyResponse](t, w)
	assert.Equal(t, c.ID, resp.Candidate.CampaignID)
	assert.Equal(t, "Jane Doe", resp.Candidate.Name)
	assert.Contains(t, string(resp.Candidate.Data), `"skills":["Go","SQL"]`)
}

func TestApplyRejectsOversizedBody(t *testing.T) {
	env := newTestEnv(t)
	f, _ := env.seedCampaign(t, database.CampaignActive)

	w := env.multipart(t, "/api/forms/"+f.ID+"/apply",
		map[string][]string{"name": {"Jane Doe"}, "email": {"jane@example.com"}},
		map[string][]byte{"cv": make([]byte, testUploadLimit+multipartOverhead+1)},
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Submission too large", errorMessage(t, w))
	assert.Empty(t, env.blob.stored())
}

func TestApplyToInactiveCampaignStoresNoFiles(t *testing.T) {
	env := newTestEnv(t)
	f, c := env.seedCampaign(t, database.CampaignDraft)

	w := env.multipart(t, "/api/forms/"+f.ID+"/apply",
		map[string][]string{"campaign_id": {c.ID}, "name": {"Jane Doe"}, "email": {"jane@example.com"}},
		map[string][]byte{"cv": []byte("%PDF-1.4")},
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Campaign is not active", errorMessage(t, w))
	assert.Empty(t, env.blob.stored())
}

func TestCandidateReviewRoutes(t *testing.T) {
	env := newTestEnv(t)
	f, c := env.seedCampaign(t, database.CampaignActive)
	ctx := context.Background()
	row, err := env.store.CreateCandidate(ctx, store.NewCandidate{CampaignID: c.ID, FormID: f.ID, Email: "a@b.c", Name: "Ann"})
	require.NoError(t, err)

	w := env.do(t, http.MethodPut, "/api/candidates/"+row.ID+"/status", map[string]any{"status": "hired"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/candidates/"+row.ID+"/status", map[string]any{"status": "reviewing", "notes": "Looks good"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, database.StatusReviewing, decode[candidateView](t, w).Status)

	w = env.do(t, http.MethodPut, "/api/candidates/"+uuid.NewString()+"/status", map[string]any{"status": "accepted"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/candidates/"+row.ID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[candidateView](t, w)
	require.Len(t, detail.History, 2)
	assert.Equal(t, database.StatusReviewing, detail.History[0].Status)
	require.NotNil(t, detail.History[0].ReviewedBy)
	assert.Equal(t, "reviewer", *detail.History[0].ReviewedBy)
	require.NotNil(t, detail.Campaign)
	assert.Equal(t, "Spring hiring", detail.Campaign.Title)

	w = env.do(t, http.MethodPut, "/api/candidates/"+row.ID, map[string]any{"rating": 6}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPut, "/api/candidates/"+row.ID, map[string]any{"rating": 4, "notes": "Strong Go"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[candidateView](t, w)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 4, *updated.Rating)

	w = env.do(t, http.MethodGet, "/api/candidates?status=reviewing&campaign_id="+c.ID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]candidateView](t, w), 1)

	w = env.do(t, http.MethodGet, "/api/candidates?limit=abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/candidates/campaign/"+c.ID+"?status=pending", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]candidateView](t, w))

	w = env.do(t, http.MethodGet, "/api/campaigns/"+c.ID+"/stats", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.StatusCounts{Total: 1, Reviewing: 1}, decode[report.StatusCounts](t, w))

	w = env.do(t, http.MethodGet, "/api/candidates/stats/overview", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[report.StatusCounts](t, w).Total)

	w = env.do(t, http.MethodGet, "/api/dashboard/stats", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[report.Dashboard](t, w)
	assert.Equal(t, int64(1), dash.ActiveCampaigns)
	assert.Equal(t, 1, dash.TotalApplications)
	assert.Equal(t, 0, dash.PendingReviews)

	w = env.do(t, http.MethodGet, "/api/campaigns/"+c.ID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[campaignView](t, w).Candidates, 1)

	w = env.do(t, http.MethodDelete, "/api/candidates/"+row.ID, nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, "/api/candidates/"+row.ID, nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmailRoutes(t *testing.T) {
	env := newTestEnv(t)
	f, c := env.seedCampaign(t, database.CampaignActive)
	row, err := env.store.CreateCandidate(context.Background(), store.NewCandidate{CampaignID: c.ID, FormID: f.ID, Email: "a@b.c", Name: "Ann"})
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/api/email/notify-candidate", map[string]any{"candidate_id": uuid.NewString(), "status": "accepted"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/email/notify-candidate", map[string]any{"candidate_id": row.ID, "status": "bogus"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/email/notify-candidate", map[string]any{"candidate_id": row.ID, "status": "accepted", "custom_message": "Welcome"}, true)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, env.queue.tasks, 1)
	assert.Equal(t, tasks.TypeEmailNotify, env.queue.tasks[0].Type())

	w = env.do(t, http.MethodPost, "/api/email/test", map[string]any{"to": "not-an-email"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPost, "/api/email/test", map[string]any{"to": "ops@example.com"}, true)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = env.do(t, http.MethodGet, "/api/email/templates", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	templates := decode[[]templateView](t, w)
	require.Len(t, templates, len(database.TemplateTypes))

	w = env.do(t, http.MethodPut, "/api/email/templates/"+templates[0].ID, map[string]any{"subject": "New subject", "content": "Body"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[templateView](t, w)
	assert.Equal(t, "New subject", updated.Subject)
	assert.Equal(t, templates[0].Name, updated.Name)

	w = env.do(t, http.MethodPut, "/api/email/templates/"+uuid.NewString(), map[string]any{"subject": "s", "content": "c"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRoute(t *testing.T) {
	env := newTestEnv(t)

	w := env.multipart(t, "/api/upload", map[string][]string{"other": {"x"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", errorMessage(t, w))

	w = env.multipart(t, "/api/upload", nil, map[string][]byte{"file": make([]byte, testUploadLimit+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File too large", errorMessage(t, w))

	w = env.multipart(t, "/api/upload", nil, map[string][]byte{"file": []byte("hello")})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[uploadResponse](t, w)
	assert.Equal(t, "file resume.pdf", resp.FileName)
	assert.Equal(t, int64(5), resp.Size)
	assert.True(t, strings.HasSuffix(resp.URL, "-file_resume.pdf"))
}
