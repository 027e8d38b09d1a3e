// Package report aggregates candidate statuses for campaign and dashboard views.
package report

import (
	"context"

	"tfgRecruit/internal/database"
)

// StatusCounts is the per-status breakdown of a set of candidates.
type StatusCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Reviewing int `json:"reviewing"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
}

// Tally counts statuses in memory. Unknown values only add to Total.
func Tally(statuses []string) StatusCounts {
	counts := StatusCounts{Total: len(statuses)}
	for _, s := range statuses {
		switch s {
		case database.StatusPending:
			counts.Pending++
		case database.StatusReviewing:
			counts.Reviewing++
		case database.StatusAccepted:
			counts.Accepted++
		case database.StatusRejected:
			counts.Rejected++
		}
	}
	return counts
}

// Dashboard is the landing page summary.
type Dashboard struct {
	TotalCampaigns     int64 `json:"total_campaigns"`
	ActiveCampaigns    int64 `json:"active_campaigns"`
	TotalApplications  int   `json:"total_applications"`
	PendingReviews     int   `json:"pending_reviews"`
	AcceptedCandidates int   `json:"accepted_candidates"`
	RejectedCandidates int   `json:"rejected_candidates"`
}

// Source is the read side of the store the reports need.
type Source interface {
	CandidateStatuses(ctx context.Context, campaignID string) ([]string, error)
	CountCampaigns(ctx context.Context) (total, active int64, err error)
}

// Service computes reports on demand. Nothing is cached.
type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

// Campaign counts the candidates of one campaign.
func (s *Service) Campaign(ctx context.Context, campaignID string) (StatusCounts, error) {
	statuses, err := s.src.CandidateStatuses(ctx, campaignID)
	if err != nil {
		return StatusCounts{}, err
	}
	return Tally(statuses), nil
}

// Overview counts all candidates, or one campaign's when campaignID is set.
func (s *Service) Overview(ctx context.Context, campaignID string) (StatusCounts, error) {
	return s.Campaign(ctx, campaignID)
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	total, active, err := s.src.CountCampaigns(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	statuses, err := s.src.CandidateStatuses(ctx, "")
	if err != nil {
		return Dashboard{}, err
	}
	counts := Tally(statuses)
	return Dashboard{
		TotalCampaigns:     total,
		ActiveCampaigns:    active,
		TotalApplications:  counts.Total,
		PendingReviews:     counts.Pending,
		AcceptedCandidates: counts.Accepted,
		RejectedCandidates: counts.Rejected,
	}, nil
}
