// audit/service.go
package audit

import (
	"context"
	"time"
)

type Service interface {
	LogAuthorization(ctx context.Context, trail []AuditEntry) error
	QueryTrail(ctx context.Context, from, to time.Time, subjectID, resourceID string) ([]AuditEntry, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogAuthorization(ctx context.Context, trail []AuditEntry) error {
	return s.repo.LogAuthorization(ctx, trail)
}

func (s *service) QueryTrail(ctx context.Context, from, to time.Time, subjectID, resourceID string) ([]AuditEntry, error) {
	return s.repo.QueryTrail(ctx, from, to, subjectID, resourceID)
}
