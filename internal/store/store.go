package store

import (
	"context"
	"errors"
	"time"

	"timeoff-tracker-go/internal/models"
	"timeoff-tracker-go/internal/recordstore"
)

// ErrNotFound is returned when a looked-up entity does not exist.
var ErrNotFound = errors.New("not found")

// RecordAPI is the slice of the record-store client the stores need.
// *recordstore.Client satisfies it; tests substitute a fake.
type RecordAPI interface {
	CreateRecord(ctx context.Context, layout string, fields map[string]any) (string, error)
	GetRecord(ctx context.Context, layout, id string) (recordstore.Record, error)
	ListRecords(ctx context.Context, layout string) ([]recordstore.Record, error)
	FindRecords(ctx context.Context, layout string, query map[string]any) ([]recordstore.Record, error)
	UpdateRecord(ctx context.Context, layout, id string, fields map[string]any) error
	DeleteRecord(ctx context.Context, layout, id string) error
}

// UserStore handles user records (record store, Users layout)
type UserStore interface {
	CreateUser(ctx context.Context, name, email, password, role, managerID string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	GetManager(ctx context.Context, employeeID string) (models.User, error)
	UpdateUser(ctx context.Context, id, name, role string) error
	UpdateUserProfile(ctx context.Context, id, name string) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	UpdateUser2FA(ctx context.Context, id, totpSecret string, enabled bool) error
	Disable2FA(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
}

// RequestStore handles time-off request records (record store, TimeOffRequests layout)
type RequestStore interface {
	CreateRequest(ctx context.Context, req models.TimeOffRequest) (models.TimeOffRequest, error)
	GetRequest(ctx context.Context, id string) (models.TimeOffRequest, error)
	GetRequestsByEmployee(ctx context.Context, employeeID string) ([]models.TimeOffRequest, error)
	GetRequestsByManager(ctx context.Context, managerID string) ([]models.TimeOffRequest, error)
	SetHRMSRequestID(ctx context.Context, id, hrmsRequestID string) error
	UpdateDecision(ctx context.Context, id, status, notes string, processedAt time.Time) error
	FindApprovedByRole(ctx context.Context, role string) ([]models.TimeOffRequest, error)
}

// SessionStore handles bearer-token sessions (Redis)
type SessionStore interface {
	CreateSession(ctx context.Context, user models.User) (string, error)
	GetSession(ctx context.Context, token string) (models.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// AdminStore handles audit and push-subscription data (PostgreSQL)
type AdminStore interface {
	InsertAudit(ctx context.Context, actorID, action, targetType, targetID, metadata string) error
	GetAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)
	SavePushSubscription(ctx context.Context, userID, endpoint, p256dh, auth string) error
	GetPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error)
}
