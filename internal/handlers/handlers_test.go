package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"timeoff-tracker-go/internal/models"
	"timeoff-tracker-go/internal/notify"
	"timeoff-tracker-go/internal/store"
)

// In-memory fakes for the store interfaces. Each test wires up only the
// pieces its handler touches.

type fakeUserStore struct {
	users  map[string]models.User
	getErr error
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) CreateUser(_ context.Context, name, email, password, role, managerID string) (models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return models.User{}, errors.New("user already exists")
		}
	}
	hash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u := models.User{
		ID:           fmt.Sprintf("u%d", len(s.users)+1),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		ManagerID:    managerID,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeUserStore) GetUser(_ context.Context, id string) (models.User, error) {
	if s.getErr != nil {
		return models.User{}, s.getErr
	}
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (s *fakeUserStore) GetUsers(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *fakeUserStore) GetManager(ctx context.Context, employeeID string) (models.User, error) {
	u, err := s.GetUser(ctx, employeeID)
	if err != nil {
		return models.User{}, err
	}
	if u.ManagerID == "" {
		return models.User{}, store.ErrNotFound
	}
	return s.GetUser(ctx, u.ManagerID)
}

func (s *fakeUserStore) UpdateUser(_ context.Context, id, name, role string) error {
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Name, u.Role = name, role
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) UpdateUserProfile(_ context.Context, id, name string) error {
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Name = name
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) UpdateUserPassword(_ context.Context, id, passwordHash string) error {
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) UpdateUser2FA(_ context.Context, id, totpSecret string, enabled bool) error {
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.TOTPSecret, u.TOTPEnabled = totpSecret, enabled
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) Disable2FA(ctx context.Context, id string) error {
	return s.UpdateUser2FA(ctx, id, "", false)
}

func (s *fakeUserStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type fakeRequestStore struct {
	requests map[string]models.TimeOffRequest
	nextID   int
}

func newFakeRequestStore(requests ...models.TimeOffRequest) *fakeRequestStore {
	s := &fakeRequestStore{requests: make(map[string]models.TimeOffRequest)}
	for _, req := range requests {
		s.requests[req.ID] = req
	}
	return s
}

func (s *fakeRequestStore) CreateRequest(_ context.Context, req models.TimeOffRequest) (models.TimeOffRequest, error) {
	s.nextID++
	req.ID = fmt.Sprintf("r%d", s.nextID)
	req.CreatedAt = time.Now().UTC()
	s.requests[req.ID] = req
	return req, nil
}

func (s *fakeRequestStore) GetRequest(_ context.Context, id string) (models.TimeOffRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return models.TimeOffRequest{}, store.ErrNotFound
	}
	return req, nil
}

func (s *fakeRequestStore) GetRequestsByEmployee(_ context.Context, employeeID string) ([]models.TimeOffRequest, error) {
	var out []models.TimeOffRequest
	for _, req := range s.requests {
		if req.EmployeeID == employeeID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (s *fakeRequestStore) GetRequestsByManager(_ context.Context, managerID string) ([]models.TimeOffRequest, error) {
	var out []models.TimeOffRequest
	for _, req := range s.requests {
		if req.ManagerID == managerID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (s *fakeRequestStore) SetHRMSRequestID(_ context.Context, id, hrmsRequestID string) error {
	req, ok := s.requests[id]
	if !ok {
		return store.ErrNotFound
	}
	req.HRMSRequestID = hrmsRequestID
	s.requests[id] = req
	return nil
}

func (s *fakeRequestStore) UpdateDecision(_ context.Context, id, status, notes string, processedAt time.Time) error {
	req, ok := s.requests[id]
	if !ok {
		return store.ErrNotFound
	}
	req.Status, req.ManagerNotes, req.ProcessedAt = status, notes, processedAt
	s.requests[id] = req
	return nil
}

func (s *fakeRequestStore) FindApprovedByRole(_ context.Context, role string) ([]models.TimeOffRequest, error) {
	var out []models.TimeOffRequest
	for _, req := range s.requests {
		if req.Role == role && req.Status == models.StatusApproved {
			out = append(out, req)
		}
	}
	return out, nil
}

type fakeSessionStore struct {
	sessions map[string]models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.Session)}
}

func (s *fakeSessionStore) CreateSession(_ context.Context, user models.User) (string, error) {
	token := fmt.Sprintf("tok-%s-%d", user.ID, len(s.sessions)+1)
	s.sessions[token] = models.Session{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}
	return token, nil
}

func (s *fakeSessionStore) GetSession(_ context.Context, token string) (models.Session, error) {
	sess, ok := s.sessions[token]
	if !ok {
		return models.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *fakeSessionStore) DeleteSession(_ context.Context, token string) error {
	delete(s.sessions, token)
	return nil
}

type fakeHRMS struct {
	submitErr     error
	updateErr     error
	submitted     []models.TimeOffRequest
	statusUpdates []string
}

func (f *fakeHRMS) SubmitRequest(_ context.Context, req models.TimeOffRequest) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return fmt.Sprintf("HRMS-%s", req.ID), nil
}

func (f *fakeHRMS) UpdateStatus(_ context.Context, requestID, status, notes string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.statusUpdates = append(f.statusUpdates, requestID+":"+status)
	return nil
}

type testEnv struct {
	handler  *Handler
	users    *fakeUserStore
	requests *fakeRequestStore
	sessions *fakeSessionStore
	hrms     *fakeHRMS
	hub      *notify.Hub
}

func newTestEnv(users ...models.User) *testEnv {
	env := &testEnv{
		users:    newFakeUserStore(users...),
		requests: newFakeRequestStore(),
		sessions: newFakeSessionStore(),
		hrms:     &fakeHRMS{},
		hub:      notify.NewHub(),
	}
	env.handler = NewHandler(env.users, env.requests, env.sessions, nil, env.hrms, env.hub)
	return env
}

// asUser attaches an authenticated session to the request, the way WithAuth
// does for real traffic.
func asUser(r *http.Request, u models.User) *http.Request {
	sess := models.Session{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	return r.WithContext(context.WithValue(r.Context(), sessionContextKey, sess))
}
