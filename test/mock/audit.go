// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/albeach/DIVE-V3-sub011/audit"
	"github.com/stretchr/testify/mock"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogAuthorization(ctx context.Context, trail []audit.AuditEntry) error {
	args := m.Called(ctx, trail)
	return args.Error(0)
}

func (m *MockAuditService) QueryTrail(ctx context.Context, from, to time.Time, subjectID, resourceID string) ([]audit.AuditEntry, error) {
	args := m.Called(ctx, from, to, subjectID, resourceID)
	return args.Get(0).([]audit.AuditEntry), args.Error(1)
}

// RecordingAuditService captures audit trails for assertions.
type RecordingAuditService struct {
	Trails [][]audit.AuditEntry
}

func (r *RecordingAuditService) LogAuthorization(ctx context.Context, trail []audit.AuditEntry) error {
	r.Trails = append(r.Trails, trail)
	return nil
}

func (r *RecordingAuditService) QueryTrail(ctx context.Context, from, to time.Time, subjectID, resourceID string) ([]audit.AuditEntry, error) {
	var out []audit.AuditEntry
	for _, trail := range r.Trails {
		out = append(out, trail...)
	}
	return out, nil
}
