package services

import "github.com/tbourn/go-case-router/internal/domain"

// FilterEligible narrows candidates to lawyers that are verified, whose
// account is active, that have spare capacity, and that are not in exclude.
// It never returns nil and has no side effects; an empty result is for the
// caller to interpret.
//
// A lawyer whose cap was lowered below their current load is simply not
// eligible until the load drops; existing assignments are left alone.
func FilterEligible(cands []domain.LawyerCandidate, exclude map[string]struct{}) []domain.LawyerCandidate {
	out := make([]domain.LawyerCandidate, 0, len(cands))
	for _, c := range cands {
		if c.VerificationStatus != domain.VerificationVerified {
			continue
		}
		if c.AccountStatus != domain.AccountActive {
			continue
		}
		if !c.HasCapacity() {
			continue
		}
		if _, skip := exclude[c.ID]; skip {
			continue
		}
		out = append(out, c)
	}
	return out
}
