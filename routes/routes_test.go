package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"equiplend/app"
	"equiplend/catalog"
	"equiplend/config"
	"equiplend/controllers"
	"equiplend/db"
	"equiplend/lending"
	"equiplend/logger"
	"equiplend/memstore"
	"equiplend/metrics"
	"equiplend/models"
	"equiplend/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// directory keeps users and invites in memory and mirrors users into the
// lending store so admin listings can join them.
type directory struct {
	mu      sync.Mutex
	store   *memstore.Store
	users   map[string]*models.User
	invites map[string]*models.Invite
}

func (d *directory) CreateUser(_ context.Context, u *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, x := range d.users {
		if x.Email == u.Email {
			return db.ErrEmailTaken
		}
	}
	d.users[u.ID] = u
	d.store.PutUser(*u)
	return nil
}

func (d *directory) CreateUserWithInvite(ctx context.Context, token string, u *models.User) error {
	d.mu.Lock()
	inv, ok := d.invites[token]
	if !ok || !inv.Usable(time.Now()) || inv.Email != strings.ToLower(u.Email) {
		d.mu.Unlock()
		return db.ErrInviteUnusable
	}
	now := time.Now()
	inv.UsedAt = &now
	u.Role = inv.Role
	d.mu.Unlock()
	return d.CreateUser(ctx, u)
}

func (d *directory) FindUserByID(_ context.Context, id string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *directory) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (d *directory) TouchUserLogin(context.Context, string) error { return nil }

func (d *directory) CreateInvite(_ context.Context, email, token string, role models.Role, expiresAt time.Time, createdBy string) (*models.Invite, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	inv := &models.Invite{Email: strings.ToLower(email), Token: token, Role: role, ExpiresAt: expiresAt, CreatedBy: createdBy}
	d.invites[token] = inv
	return inv, nil
}

type sessions struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (s *sessions) TTL() time.Duration { return time.Hour }

func (s *sessions) Create(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[id] = userID
	return nil
}

func (s *sessions) Get(_ context.Context, id string) (*session.AppSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.tokens[id]
	if !ok {
		return nil, session.ErrNoSession
	}
	return &session.AppSession{UserID: uid}, nil
}

func (s *sessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
	return nil
}

func (s *sessions) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.tokens {
		if v == userID {
			delete(s.tokens, k)
		}
	}
	return nil
}

type testServer struct {
	r     *gin.Engine
	store *memstore.Store
	dir   *directory
	sess  *sessions
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	dir := &directory{store: st, users: map[string]*models.User{}, invites: map[string]*models.Invite{}}
	sess := &sessions{tokens: map[string]string{}}
	m := metrics.New()

	srv := &controllers.Srv{
		Engine:   lending.NewEngine(st, lending.WithMetrics(m)),
		Catalog:  catalog.New(st, nil),
		Users:    dir,
		Sessions: sess,
		Log:      logger.Nop(),
		Cfg:      config.Config{WebOrigin: "http://localhost:3000", InviteTTL: 72 * time.Hour},
	}
	r := gin.New()
	r.Use(app.Metrics(m))
	Register(r, srv, app.NewGate(sess, dir), m)
	return &testServer{r: r, store: st, dir: dir, sess: sess}
}

// adminToken seeds an admin directly; admins cannot self-register.
func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-password"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{ID: uuid.NewString(), Name: "Admin", Email: "admin@example.edu", PasswordHash: string(hash), Role: models.RoleAdmin}
	require.NoError(t, ts.dir.CreateUser(context.Background(), u))
	return ts.login(t, u.Email, "admin-password")
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.r.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (ts *testServer) signup(t *testing.T, body map[string]any) string {
	t.Helper()
	rec, out := ts.do(t, http.MethodPost, "/api/signup", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return out["user"].(map[string]any)["id"].(string)
}

func (ts *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec, out := ts.do(t, http.MethodPost, "/api/login", "", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return out["token"].(string)
}

func (ts *testServer) createItem(t *testing.T, adminTok string, total int) string {
	t.Helper()
	rec, out := ts.do(t, http.MethodPost, "/api/equipment", adminTok, map[string]any{
		"name": "Oscilloscope", "category": "lab", "cond": "good", "total_quantity": total,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return out["id"].(string)
}

func (ts *testServer) available(t *testing.T, itemID string) float64 {
	t.Helper()
	rec, out := ts.do(t, http.MethodGet, "/api/equipment/"+itemID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return out["available_quantity"].(float64)
}

func TestLendingFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	adminTok := ts.adminToken(t)
	ts.signup(t, map[string]any{"name": "Ana", "email": "ana@example.edu", "password": "ana-password"})
	stuTok := ts.login(t, "ana@example.edu", "ana-password")

	itemID := ts.createItem(t, adminTok, 5)
	assert.Equal(t, 5.0, ts.available(t, itemID))

	rec, out := ts.do(t, http.MethodPost, "/api/requests", stuTok, map[string]any{"item_id": itemID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reqID := out["id"].(string)
	assert.Equal(t, "PENDING", out["status"])
	assert.Equal(t, 5.0, ts.available(t, itemID))

	rec, out = ts.do(t, http.MethodPost, "/api/requests/"+reqID+"/approve", stuTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", out["code"])

	rec, out = ts.do(t, http.MethodPost, "/api/requests/"+reqID+"/approve", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "APPROVED", out["status"])
	assert.NotEmpty(t, out["approve_date"])
	assert.Equal(t, 4.0, ts.available(t, itemID))

	rec, out = ts.do(t, http.MethodPost, "/api/requests/"+reqID+"/approve", adminTok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_PROCESSED", out["code"])
	assert.Equal(t, 4.0, ts.available(t, itemID))

	rec, out = ts.do(t, http.MethodGet, "/api/requests", stuTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := out["requests"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "Oscilloscope", rows[0].(map[string]any)["item_name"])
	assert.NotContains(t, rows[0].(map[string]any), "user_email")

	rec, out = ts.do(t, http.MethodGet, "/api/requests", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows = out["requests"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "ana@example.edu", rows[0].(map[string]any)["user_email"])

	rec, out = ts.do(t, http.MethodGet, "/api/requests/mine", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, out["requests"])

	rec, out = ts.do(t, http.MethodPost, "/api/requests/"+reqID+"/return", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "RETURNED", out["status"])
	assert.Equal(t, 5.0, ts.available(t, itemID))

	rec, out = ts.do(t, http.MethodPost, "/api/requests/"+reqID+"/return", adminTok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "RETURN_NOT_APPLICABLE", out["code"])

	rec, out = ts.do(t, http.MethodGet, "/api/requests/"+reqID+"/history", stuTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["events"], 3)
}

func TestRequestErrorsOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	adminTok := ts.adminToken(t)
	ts.signup(t, map[string]any{"name": "Bo", "email": "bo@example.edu", "password": "bo-password", "role": "staff"})
	staffTok := ts.login(t, "bo@example.edu", "bo-password")

	rec, _ := ts.do(t, http.MethodPost, "/api/requests", "", map[string]any{"item_id": uuid.NewString()})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out := ts.do(t, http.MethodPost, "/api/requests", staffTok, map[string]any{"item_id": "not-a-uuid"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", out["code"])

	rec, _ = ts.do(t, http.MethodPost, "/api/requests", staffTok, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/requests", adminTok, map[string]any{"item_id": uuid.NewString()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	emptyID := ts.createItem(t, adminTok, 0)
	rec, out = ts.do(t, http.MethodPost, "/api/requests", staffTok, map[string]any{"item_id": emptyID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ITEM_UNAVAILABLE", out["code"])

	rec, out = ts.do(t, http.MethodPost, "/api/requests/"+uuid.NewString()+"/reject", adminTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", out["code"])

	itemID := ts.createItem(t, adminTok, 1)
	_, out = ts.do(t, http.MethodPost, "/api/requests", staffTok, map[string]any{"item_id": itemID})
	reqID := out["id"].(string)

	rec, out = ts.do(t, http.MethodDelete, "/api/equipment/"+itemID, adminTok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ITEM_IN_USE", out["code"])

	rec, out = ts.do(t, http.MethodPost, "/api/requests/"+reqID+"/reject", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "REJECTED", out["status"])

	rec, _ = ts.do(t, http.MethodDelete, "/api/equipment/"+itemID, adminTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.do(t, http.MethodGet, "/api/equipment/"+itemID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEquipmentUpdateOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	adminTok := ts.adminToken(t)
	itemID := ts.createItem(t, adminTok, 5)

	rec, out := ts.do(t, http.MethodPut, "/api/equipment/"+itemID, adminTok, map[string]any{"total_quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3.0, out["total_quantity"])
	assert.Equal(t, 3.0, out["available_quantity"])

	rec, out = ts.do(t, http.MethodPut, "/api/equipment/"+itemID, adminTok, map[string]any{"total_quantity": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", out["code"])

	rec, _ = ts.do(t, http.MethodPut, "/api/equipment/"+itemID, "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = ts.do(t, http.MethodGet, "/api/equipment", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["items"], 1)
}

func TestAuthOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec, out := ts.do(t, http.MethodPost, "/api/signup", "", map[string]any{
		"name": "Mallory", "email": "m@example.edu", "password": "mallory-pass", "role": "admin",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", out["code"])

	rec, _ = ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{"name": "Cy", "email": "cy@example.edu", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.signup(t, map[string]any{"name": "Cy", "email": "cy@example.edu", "password": "cy-password"})
	rec, out = ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{"name": "Cy", "email": "CY@example.edu", "password": "cy-password"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_TAKEN", out["code"])

	rec, _ = ts.do(t, http.MethodPost, "/api/login", "", map[string]any{"email": "cy@example.edu", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = ts.do(t, http.MethodPost, "/api/login", "", map[string]any{"email": "nobody@example.edu", "password": "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok := ts.login(t, "cy@example.edu", "cy-password")
	rec, out = ts.do(t, http.MethodGet, "/api/whoami", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student", out["role"])

	rec, _ = ts.do(t, http.MethodPost, "/api/logout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.do(t, http.MethodGet, "/api/whoami", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	a := ts.login(t, "cy@example.edu", "cy-password")
	b := ts.login(t, "cy@example.edu", "cy-password")
	rec, _ = ts.do(t, http.MethodPost, "/api/logout?all=1", a, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = ts.do(t, http.MethodGet, "/api/whoami", b, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInviteSignupOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	adminTok := ts.adminToken(t)

	rec, out := ts.do(t, http.MethodPost, "/api/admin/invites", adminTok, map[string]any{"email": "dee@example.edu", "role": "admin"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token := out["token"].(string)
	assert.Contains(t, out["link"], "inviteToken="+token)

	id := ts.signup(t, map[string]any{"name": "Dee", "email": "dee@example.edu", "password": "dee-password", "inviteToken": token})
	u, err := ts.dir.FindUserByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	rec, out = ts.do(t, http.MethodPost, "/api/signup", "", map[string]any{"name": "Dee", "email": "dee@example.edu", "password": "dee-password", "inviteToken": token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVITE_UNUSABLE", out["code"])

	ts.signup(t, map[string]any{"name": "Eli", "email": "eli@example.edu", "password": "eli-password"})
	eliTok := ts.login(t, "eli@example.edu", "eli-password")
	rec, _ = ts.do(t, http.MethodPost, "/api/admin/invites", eliTok, map[string]any{"email": "x@example.edu"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec, out := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["ok"])

	ts.do(t, http.MethodGet, "/api/equipment", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	ts.r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `equiplend_http_requests_total{method="GET",route="/api/equipment",status="200"} 1`)
}
