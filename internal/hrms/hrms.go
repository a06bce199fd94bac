// Package hrms mirrors time-off requests into the external HR system's
// HRMS_Requests layout. Calls are best-effort record-keeping; the primary
// record in TimeOffRequests is the system of record.
package hrms

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"timeoff-tracker-go/internal/models"
	"timeoff-tracker-go/internal/recordstore"
)

const Layout = "HRMS_Requests"

// recordAPI is the slice of the record-store client the mirror needs.
type recordAPI interface {
	CreateRecord(ctx context.Context, layout string, fields map[string]any) (string, error)
	FindRecords(ctx context.Context, layout string, query map[string]any) ([]recordstore.Record, error)
	UpdateRecord(ctx context.Context, layout, id string, fields map[string]any) error
}

type Service struct {
	api recordAPI
}

func NewService(api recordAPI) *Service {
	return &Service{api: api}
}

// SubmitRequest stores a copy of a new time-off request and returns the
// generated external request id.
func (s *Service) SubmitRequest(ctx context.Context, req models.TimeOffRequest) (string, error) {
	requestID := fmt.Sprintf("REQ-%d-%03d", time.Now().UnixMilli(), rand.Intn(1000))

	_, err := s.api.CreateRecord(ctx, Layout, map[string]any{
		"request_id":    requestID,
		"local_id":      req.ID,
		"employee_id":   req.EmployeeID,
		"employee_name": req.EmployeeName,
		"role":          req.Role,
		"manager_id":    req.ManagerID,
		"manager_name":  req.ManagerName,
		"start_date":    req.StartDate,
		"end_date":      req.EndDate,
		"reason":        req.Reason,
		"status":        models.StatusPending,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("submitting request to HRMS: %w", err)
	}

	log.Printf("HRMS request submitted: %s", requestID)
	return requestID, nil
}

// UpdateStatus finds the mirrored request by its external id and patches
// the decision onto it.
func (s *Service) UpdateStatus(ctx context.Context, requestID, status, notes string) error {
	recs, err := s.api.FindRecords(ctx, Layout, map[string]any{"request_id": requestID})
	if err != nil {
		return fmt.Errorf("looking up HRMS request %s: %w", requestID, err)
	}
	if len(recs) == 0 {
		return fmt.Errorf("HRMS request %s not found", requestID)
	}

	err = s.api.UpdateRecord(ctx, Layout, recs[0].ID, map[string]any{
		"status":        status,
		"manager_notes": notes,
		"updated_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("updating HRMS request %s: %w", requestID, err)
	}
	return nil
}
