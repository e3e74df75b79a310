package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"debtboard/internal/domain"
	"debtboard/internal/repository"
	"debtboard/internal/service"
	"debtboard/internal/transport/auth"
)

var testSecret = []byte("test-secret")

type fakeSnapshots struct {
	data map[string][]byte
}

func (f *fakeSnapshots) Get(ctx context.Context, name string) ([]byte, error) {
	d, ok := f.data[name]
	if !ok {
		return nil, errors.New("snapshot not found")
	}
	return d, nil
}

type fakeRefresher struct {
	runErr  error
	status  *service.RunStatus
	lastErr error
}

func (f *fakeRefresher) Run(ctx context.Context) (*service.RunStatus, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.status, nil
}

func (f *fakeRefresher) LastStatus(ctx context.Context) (*service.RunStatus, error) {
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	return f.status, nil
}

type fakeNotes struct {
	created *domain.Note
}

func (f *fakeNotes) Create(ctx context.Context, customerID, noteText, authorName string) (*domain.Note, error) {
	f.created = &domain.Note{ID: 1, CustomerID: customerID, NoteText: noteText, AuthorName: authorName}
	return f.created, nil
}

func (f *fakeNotes) ListByCustomer(ctx context.Context, customerID string) ([]domain.Note, error) {
	return []domain.Note{{ID: 1, CustomerID: customerID, NoteText: "call back", AuthorName: "admin"}}, nil
}

type fakeUsers struct {
	createErr error
	deleteErr error
}

func (f *fakeUsers) Authenticate(ctx context.Context, name, phoneNumber string) (*domain.User, error) {
	if name == "admin" && phoneNumber == "998901111111" {
		return &domain.User{ID: 1, Name: "admin"}, nil
	}
	return nil, service.ErrInvalidCredentials
}

func (f *fakeUsers) List(ctx context.Context) ([]domain.User, error) {
	return []domain.User{{ID: 1, Name: "admin"}}, nil
}

func (f *fakeUsers) Create(ctx context.Context, name, phoneNumber string) (*domain.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.User{ID: 2, Name: name}, nil
}

func (f *fakeUsers) Delete(ctx context.Context, id int64) error {
	return f.deleteErr
}

type fakeExports struct{}

func (f *fakeExports) StartSummaryExport(ctx context.Context, userID int64) (string, error) {
	return "exports:abc", nil
}

func (f *fakeExports) GetExport(ctx context.Context, exportID string, userID int64) (*service.ExportStatus, error) {
	if exportID != "exports:abc" {
		return nil, errors.New("not found")
	}
	return &service.ExportStatus{Key: exportID, UserID: userID, Progress: 100}, nil
}

func (f *fakeExports) GetExports(ctx context.Context, userID int64) ([]service.ExportStatus, error) {
	return nil, nil
}

type testEnv struct {
	handler   *Handler
	router    http.Handler
	token     string
	snapshots *fakeSnapshots
	refresher *fakeRefresher
	notes     *fakeNotes
	users     *fakeUsers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		snapshots: &fakeSnapshots{data: map[string][]byte{}},
		refresher: &fakeRefresher{status: &service.RunStatus{RunID: "run-1", Records: 10, Customers: 3}},
		notes:     &fakeNotes{},
		users:     &fakeUsers{},
	}

	env.handler = NewHandler(env.snapshots, env.refresher, env.notes, env.users, &fakeExports{}, testSecret)
	env.router = env.handler.InitRouterWithAuth(auth.Middleware(testSecret))

	token, err := auth.IssueToken(testSecret, &domain.User{ID: 1, Name: "admin"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	env.token = token

	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+env.token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestGetSummaryDebts_servesStoredBytesVerbatim(t *testing.T) {
	env := newTestEnv(t)
	stored := `[{"customer_id":"c1","remaining_amount":8000}]`
	env.snapshots.data[service.SummarySnapshotName] = []byte(stored)

	rec := env.do(t, http.MethodGet, "/api/debts/summary", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != stored {
		t.Errorf("body was re-encoded: %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
}

func TestGetDetailedDebts_missingSnapshot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/debts/detailed", nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Status != "error" {
		t.Errorf("expected error envelope, got %+v", resp)
	}
}

func TestTriggerRefresh(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/refresh", nil)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["run_id"] != "run-1" {
		t.Errorf("expected run_id in response, got %+v", data)
	}
}

func TestTriggerRefresh_inProgress(t *testing.T) {
	env := newTestEnv(t)
	env.refresher.runErr = service.ErrRefreshInProgress

	rec := env.do(t, http.MethodPost, "/api/refresh", nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestGetRefreshStatus_noneRecorded(t *testing.T) {
	env := newTestEnv(t)
	env.refresher.lastErr = errors.New("no refresh has been recorded yet")

	rec := env.do(t, http.MethodGet, "/api/refresh/status", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateNote_authorFromToken(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"customer_id":"c1","note_text":"promised to pay friday"}`)
	rec := env.do(t, http.MethodPost, "/api/notes", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.notes.created == nil || env.notes.created.AuthorName != "admin" {
		t.Errorf("expected author from token identity, got %+v", env.notes.created)
	}
}

func TestCreateNote_validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/notes", []byte(`{"customer_id":"","note_text":""}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateUser_nameTaken(t *testing.T) {
	env := newTestEnv(t)
	env.users.createErr = repository.ErrNameTaken

	body := []byte(`{"name":"admin","phoneNumber":"998901111111"}`)
	rec := env.do(t, http.MethodPost, "/api/users", body)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestDeleteUser_protectedAndMissing(t *testing.T) {
	env := newTestEnv(t)

	env.users.deleteErr = service.ErrAdminProtected
	if rec := env.do(t, http.MethodDelete, "/api/users/1", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin delete, got %d", rec.Code)
	}

	env.users.deleteErr = repository.ErrUserNotFound
	if rec := env.do(t, http.MethodDelete, "/api/users/99", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing user, got %d", rec.Code)
	}
}

func TestRouter_rejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/debts/summary", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"name":"admin","phoneNumber":"998901111111"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["token"] == "" || data["userName"] != "admin" {
		t.Errorf("unexpected login payload %+v", data)
	}

	// the issued token must pass middleware verification
	identity, err := auth.ParseToken(testSecret, data["token"].(string))
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if identity.Name != "admin" {
		t.Errorf("expected identity admin, got %q", identity.Name)
	}
}

func TestLogin_invalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"name":"admin","phoneNumber":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStartSummaryExport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/exports/summary", nil)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["export_id"] != "exports:abc" {
		t.Errorf("expected export id, got %+v", data)
	}
}
