package repo

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-case-router/internal/domain"
)

func seedCase(t *testing.T, db *gorm.DB, id string) *domain.Case {
	t.Helper()
	c := &domain.Case{ID: id, UserID: "client-" + id, Summary: "consulta " + id, Priority: domain.PriorityNormal, Status: domain.CaseOpen}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed case %s: %v", id, err)
	}
	return c
}

func seedLawyer(t *testing.T, db *gorm.DB, id string, v domain.VerificationStatus, a domain.AccountStatus, maxCases int, ratings ...float64) {
	t.Helper()
	l := &domain.Lawyer{ID: id, UserID: "user-" + id, Name: id, VerificationStatus: v, AccountStatus: a, MaxConcurrentCases: maxCases}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("seed lawyer %s: %v", id, err)
	}
	for i, r := range ratings {
		rv := &domain.Review{ID: id + "-r" + string(rune('a'+i)), LawyerID: id, Rating: r, CreatedAt: time.Now().UTC()}
		if err := db.Create(rv).Error; err != nil {
			t.Fatalf("seed review: %v", err)
		}
	}
}
