package domain

// LawyerCandidate is the read model the Lawyer Directory returns: the
// lawyer's static attributes plus live load and aggregate rating.
//
// ActiveCases is computed from pending/aceptado Assignment rows at query
// time. AvgRating is nil when the lawyer has no reviews.
type LawyerCandidate struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	Name               string             `json:"name"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	AccountStatus      AccountStatus      `json:"account_status"`
	MaxConcurrentCases int                `json:"max_concurrent_cases"`
	ActiveCases        int64              `json:"active_cases"`
	AvgRating          *float64           `json:"avg_rating,omitempty"`
	ReviewCount        int64              `json:"review_count"`
}

// HasCapacity reports whether the lawyer can take one more case.
func (c LawyerCandidate) HasCapacity() bool {
	return c.MaxConcurrentCases > 0 && c.ActiveCases < int64(c.MaxConcurrentCases)
}
