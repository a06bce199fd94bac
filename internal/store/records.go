package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timeoff-tracker-go/internal/models"
	"timeoff-tracker-go/internal/recordstore"
)

// Layout names in the record store.
const (
	LayoutUsers    = "Users"
	LayoutRequests = "TimeOffRequests"
)

// RecordUserStore keeps users in the record store's Users layout.
type RecordUserStore struct {
	api RecordAPI
}

func NewRecordUserStore(api RecordAPI) *RecordUserStore {
	return &RecordUserStore{api: api}
}

func (s *RecordUserStore) CreateUser(ctx context.Context, name, email, password, role, managerID string) (models.User, error) {
	if _, err := s.GetUserByEmail(ctx, email); err == nil {
		return models.User{}, errors.New("user already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	passwordHash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		ManagerID:    managerID,
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.api.CreateRecord(ctx, LayoutUsers, map[string]any{
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"role":          user.Role,
		"manager_id":    user.ManagerID,
		"totp_enabled":  0,
		"created_at":    user.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return models.User{}, err
	}

	user.ID = id
	return user, nil
}

func (s *RecordUserStore) GetUser(ctx context.Context, id string) (models.User, error) {
	rec, err := s.api.GetRecord(ctx, LayoutUsers, id)
	if err != nil {
		if recordstore.IsNotFound(err) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return userFromRecord(rec), nil
}

func (s *RecordUserStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	recs, err := s.api.FindRecords(ctx, LayoutUsers, map[string]any{"email": email})
	if err != nil {
		return models.User{}, err
	}
	if len(recs) == 0 {
		return models.User{}, ErrNotFound
	}
	return userFromRecord(recs[0]), nil
}

func (s *RecordUserStore) GetUsers(ctx context.Context) ([]models.User, error) {
	recs, err := s.api.ListRecords(ctx, LayoutUsers)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, userFromRecord(rec))
	}
	return users, nil
}

// GetManager resolves an employee's manager via the manager_id field on the
// employee's own user record.
func (s *RecordUserStore) GetManager(ctx context.Context, employeeID string) (models.User, error) {
	employee, err := s.GetUser(ctx, employeeID)
	if err != nil {
		return models.User{}, err
	}
	if employee.ManagerID == "" {
		return models.User{}, fmt.Errorf("user %s has no manager: %w", employeeID, ErrNotFound)
	}
	return s.GetUser(ctx, employee.ManagerID)
}

func (s *RecordUserStore) UpdateUser(ctx context.Context, id, name, role string) error {
	return s.update(ctx, id, map[string]any{"name": name, "role": role})
}

func (s *RecordUserStore) UpdateUserProfile(ctx context.Context, id, name string) error {
	return s.update(ctx, id, map[string]any{"name": name})
}

func (s *RecordUserStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	return s.update(ctx, id, map[string]any{"password_hash": passwordHash})
}

func (s *RecordUserStore) UpdateUser2FA(ctx context.Context, id, totpSecret string, enabled bool) error {
	return s.update(ctx, id, map[string]any{"totp_secret": totpSecret, "totp_enabled": boolField(enabled)})
}

func (s *RecordUserStore) Disable2FA(ctx context.Context, id string) error {
	return s.update(ctx, id, map[string]any{"totp_secret": "", "totp_enabled": 0})
}

func (s *RecordUserStore) DeleteUser(ctx context.Context, id string) error {
	if err := s.api.DeleteRecord(ctx, LayoutUsers, id); err != nil {
		if recordstore.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *RecordUserStore) update(ctx context.Context, id string, fields map[string]any) error {
	if err := s.api.UpdateRecord(ctx, LayoutUsers, id, fields); err != nil {
		if recordstore.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// RecordRequestStore keeps time-off requests in the TimeOffRequests layout.
type RecordRequestStore struct {
	api RecordAPI
}

func NewRecordRequestStore(api RecordAPI) *RecordRequestStore {
	return &RecordRequestStore{api: api}
}

func (s *RecordRequestStore) CreateRequest(ctx context.Context, req models.TimeOffRequest) (models.TimeOffRequest, error) {
	req.CreatedAt = time.Now().UTC()
	id, err := s.api.CreateRecord(ctx, LayoutRequests, map[string]any{
		"employee_id":   req.EmployeeID,
		"employee_name": req.EmployeeName,
		"role":          req.Role,
		"manager_id":    req.ManagerID,
		"manager_name":  req.ManagerName,
		"start_date":    req.StartDate,
		"end_date":      req.EndDate,
		"reason":        req.Reason,
		"status":        req.Status,
		"created_at":    req.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return models.TimeOffRequest{}, err
	}
	req.ID = id
	return req, nil
}

func (s *RecordRequestStore) GetRequest(ctx context.Context, id string) (models.TimeOffRequest, error) {
	rec, err := s.api.GetRecord(ctx, LayoutRequests, id)
	if err != nil {
		if recordstore.IsNotFound(err) {
			return models.TimeOffRequest{}, ErrNotFound
		}
		return models.TimeOffRequest{}, err
	}
	return requestFromRecord(rec), nil
}

func (s *RecordRequestStore) GetRequestsByEmployee(ctx context.Context, employeeID string) ([]models.TimeOffRequest, error) {
	return s.find(ctx, map[string]any{"employee_id": employeeID})
}

func (s *RecordRequestStore) GetRequestsByManager(ctx context.Context, managerID string) ([]models.TimeOffRequest, error) {
	return s.find(ctx, map[string]any{"manager_id": managerID})
}

func (s *RecordRequestStore) SetHRMSRequestID(ctx context.Context, id, hrmsRequestID string) error {
	return s.update(ctx, id, map[string]any{"hrms_request_id": hrmsRequestID})
}

func (s *RecordRequestStore) UpdateDecision(ctx context.Context, id, status, notes string, processedAt time.Time) error {
	return s.update(ctx, id, map[string]any{
		"status":        status,
		"manager_notes": notes,
		"processed_at":  processedAt.UTC().Format(time.RFC3339),
	})
}

// FindApprovedByRole returns approved requests for one role. Date-range
// overlap is filtered by the caller; the record store query language only
// does field matches.
func (s *RecordRequestStore) FindApprovedByRole(ctx context.Context, role string) ([]models.TimeOffRequest, error) {
	return s.find(ctx, map[string]any{"role": role, "status": models.StatusApproved})
}

func (s *RecordRequestStore) find(ctx context.Context, query map[string]any) ([]models.TimeOffRequest, error) {
	recs, err := s.api.FindRecords(ctx, LayoutRequests, query)
	if err != nil {
		return nil, err
	}
	requests := make([]models.TimeOffRequest, 0, len(recs))
	for _, rec := range recs {
		requests = append(requests, requestFromRecord(rec))
	}
	return requests, nil
}

func (s *RecordRequestStore) update(ctx context.Context, id string, fields map[string]any) error {
	if err := s.api.UpdateRecord(ctx, LayoutRequests, id, fields); err != nil {
		if recordstore.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Field mapping helpers. The record store returns JSON field data, so
// numbers arrive as float64 and booleans as 0/1.

func userFromRecord(rec recordstore.Record) models.User {
	return models.User{
		ID:           rec.ID,
		Name:         fieldString(rec.Fields, "name"),
		Email:        fieldString(rec.Fields, "email"),
		PasswordHash: fieldString(rec.Fields, "password_hash"),
		Role:         fieldString(rec.Fields, "role"),
		ManagerID:    fieldString(rec.Fields, "manager_id"),
		TOTPSecret:   fieldString(rec.Fields, "totp_secret"),
		TOTPEnabled:  fieldBool(rec.Fields, "totp_enabled"),
		CreatedAt:    fieldTime(rec.Fields, "created_at"),
	}
}

func requestFromRecord(rec recordstore.Record) models.TimeOffRequest {
	return models.TimeOffRequest{
		ID:            rec.ID,
		EmployeeID:    fieldString(rec.Fields, "employee_id"),
		EmployeeName:  fieldString(rec.Fields, "employee_name"),
		Role:          fieldString(rec.Fields, "role"),
		ManagerID:     fieldString(rec.Fields, "manager_id"),
		ManagerName:   fieldString(rec.Fields, "manager_name"),
		StartDate:     fieldString(rec.Fields, "start_date"),
		EndDate:       fieldString(rec.Fields, "end_date"),
		Reason:        fieldString(rec.Fields, "reason"),
		Status:        fieldString(rec.Fields, "status"),
		ManagerNotes:  fieldString(rec.Fields, "manager_notes"),
		HRMSRequestID: fieldString(rec.Fields, "hrms_request_id"),
		CreatedAt:     fieldTime(rec.Fields, "created_at"),
		ProcessedAt:   fieldTime(rec.Fields, "processed_at"),
	}
}

func fieldString(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

func fieldBool(fields map[string]any, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v == "1" || v == "true"
	default:
		return false
	}
}

func fieldTime(fields map[string]any, key string) time.Time {
	s, ok := fields[key].(string)
	if !ok || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolField(b bool) int {
	if b {
		return 1
	}
	return 0
}
