package hrms

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeoff-tracker-go/internal/models"
	"timeoff-tracker-go/internal/recordstore"
)

type fakeAPI struct {
	created []map[string]any
	updated map[string]map[string]any
	records map[string]recordstore.Record // keyed by request_id field
	nextID  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		updated: make(map[string]map[string]any),
		records: make(map[string]recordstore.Record),
	}
}

func (f *fakeAPI) CreateRecord(_ context.Context, layout string, fields map[string]any) (string, error) {
	f.nextID++
	f.created = append(f.created, fields)
	id := string(rune('0' + f.nextID))
	if reqID, ok := fields["request_id"].(string); ok {
		f.records[reqID] = recordstore.Record{ID: id, Fields: fields}
	}
	return id, nil
}

func (f *fakeAPI) FindRecords(_ context.Context, layout string, query map[string]any) ([]recordstore.Record, error) {
	reqID, _ := query["request_id"].(string)
	if rec, ok := f.records[reqID]; ok {
		return []recordstore.Record{rec}, nil
	}
	return nil, nil
}

func (f *fakeAPI) UpdateRecord(_ context.Context, layout, id string, fields map[string]any) error {
	f.updated[id] = fields
	return nil
}

func TestSubmitRequest(t *testing.T) {
	api := newFakeAPI()
	svc := NewService(api)

	req := models.TimeOffRequest{
		ID:           "42",
		EmployeeID:   "e1",
		EmployeeName: "Alice",
		Role:         "engineer",
		ManagerID:    "m1",
		StartDate:    "2026-09-07",
		EndDate:      "2026-09-11",
		Reason:       "vacation",
	}

	requestID, err := svc.SubmitRequest(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(requestID, "REQ-"), "got %q", requestID)

	require.Len(t, api.created, 1)
	fields := api.created[0]
	assert.Equal(t, requestID, fields["request_id"])
	assert.Equal(t, "42", fields["local_id"])
	assert.Equal(t, models.StatusPending, fields["status"])
	assert.Equal(t, "Alice", fields["employee_name"])
}

func TestUpdateStatus(t *testing.T) {
	t.Run("patches the mirrored record", func(t *testing.T) {
		api := newFakeAPI()
		svc := NewService(api)

		requestID, err := svc.SubmitRequest(context.Background(), models.TimeOffRequest{ID: "42"})
		require.NoError(t, err)

		err = svc.UpdateStatus(context.Background(), requestID, models.StatusApproved, "enjoy")
		require.NoError(t, err)

		recID := api.records[requestID].ID
		require.Contains(t, api.updated, recID)
		assert.Equal(t, models.StatusApproved, api.updated[recID]["status"])
		assert.Equal(t, "enjoy", api.updated[recID]["manager_notes"])
	})

	t.Run("unknown request id errors", func(t *testing.T) {
		svc := NewService(newFakeAPI())

		err := svc.UpdateStatus(context.Background(), "REQ-missing", models.StatusRejected, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}
