package grants

import (
	"testing"

	"ngo-portal-backend/internal/models"
)

func TestPipeline(t *testing.T) {
	approved := int64(600)
	s := Pipeline([]models.Proposal{
		{Status: models.ProposalStatusDraft, AmountRequested: 100},
		{Status: models.ProposalStatusApproved, AmountRequested: 1000, AmountApproved: &approved},
		{Status: models.ProposalStatusApproved, AmountRequested: 250},
		{Status: models.ProposalStatusRejected, AmountRequested: 50},
	})

	if s.Total != 4 || s.TotalRequested != 1400 {
		t.Errorf("summary = %+v", s)
	}
	if s.ApprovedAmount != 850 {
		t.Errorf("ApprovedAmount = %d, want 850", s.ApprovedAmount)
	}
	if s.ByStatus[models.ProposalStatusApproved] != 2 || s.ByStatus[models.ProposalStatusUnderReview] != 0 {
		t.Errorf("ByStatus = %v", s.ByStatus)
	}
}

func TestPipelineEmpty(t *testing.T) {
	s := Pipeline(nil)
	if s.Total != 0 || len(s.ByStatus) != 5 {
		t.Errorf("empty summary = %+v", s)
	}
}
