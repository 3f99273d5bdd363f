package domain

import "time"

// Idempotency stores the response of a previously processed POST request,
// keyed by (scope, key). Scope is "METHOD|route|case_id|lawyer_id" as built
// by middleware.IdempotencyScope.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Scope     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:2"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	Body      []byte
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
