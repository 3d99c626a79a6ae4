package routes

import (
	"Gin_postgres_redis_lend_tool/app"
	"Gin_postgres_redis_lend_tool/controllers"
	"Gin_postgres_redis_lend_tool/db"
	"Gin_postgres_redis_lend_tool/lending"
	"Gin_postgres_redis_lend_tool/models"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testUserHeader = "X-Test-User"

type memSessions struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *memSessions) Create(_ context.Context, id, _, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = email
	return nil
}

func (s *memSessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *memSessions) TTL() time.Duration { return time.Hour }

// stubAuth trusts the test header instead of a session cookie.
func stubAuth(repo *db.Repo, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if email := c.GetHeader(testUserHeader); email != "" {
			if u, err := repo.FindUserByEmail(c.Request.Context(), email); err == nil {
				c.Set(app.CtxUserID, u.ID)
				c.Set(app.CtxEmail, u.Email)
				c.Next()
				return
			}
		}
		if required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, app.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

type harness struct {
	r        *gin.Engine
	repo     *db.Repo
	sessions *memSessions
	uploads  string
	static   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.ConnectDB(db.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared", true)
	require.NoError(t, err)
	repo := db.NewRepo(gdb)
	t.Cleanup(func() { _ = repo.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		repo:     repo,
		sessions: &memSessions{m: map[string]string{}},
		uploads:  t.TempDir(),
		static:   t.TempDir(),
	}
	srv := &controllers.Srv{
		Store:        repo,
		AppSess:      h.sessions,
		Lending:      lending.NewService(repo, lending.WithLogger(log)),
		Log:          log,
		WebOrigin:    "http://localhost:5173",
		UploadFolder: h.uploads,
	}
	h.r = gin.New()
	Mount(h.r, Deps{
		Srv:          srv,
		Auth:         stubAuth(repo, true),
		OptionalAuth: stubAuth(repo, false),
		Seen:         func(c *gin.Context) { c.Next() },
		UploadFolder: h.uploads,
		StaticFolder: h.static,
	})
	return h
}

func (h *harness) user(t *testing.T, email string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, h.repo.CreateUser(context.Background(), &models.User{
		Email: email, Name: strings.Split(email, "@")[0], Phone: "123", PasswordHash: hash,
	}))
}

func (h *harness) do(method, path, as string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != "" {
		req.Header.Set(testUserHeader, as)
	}
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (h *harness) seed(t *testing.T, as string) models.Resource {
	t.Helper()
	w := h.do(http.MethodPost, "/api/resources/seed", as, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct{ Resource models.Resource }](t, w).Resource
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginLogout(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/register", "", app.H{"name": "Bob", "email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reg := app.H{"name": " Bob ", "email": " Bob@Example.com ", "phone": "555", "password": "pw"}
	w = h.do(http.MethodPost, "/api/register", "", reg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = h.do(http.MethodPost, "/api/register", "", reg)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/api/login", "", app.H{"email": "bob@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = h.do(http.MethodPost, "/api/login", "", app.H{"email": "ghost@example.com", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/login", "", app.H{"email": "BOB@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true,"name":"Bob"}`, w.Body.String())

	var sid string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == app.AppSessionCookie {
			sid = ck.Value
			assert.True(t, ck.HttpOnly)
		}
	}
	require.NotEmpty(t, sid)
	assert.Equal(t, "bob@example.com", h.sessions.m[sid])

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: app.AppSessionCookie, Value: sid})
	lw := httptest.NewRecorder()
	h.r.ServeHTTP(lw, req)
	assert.Equal(t, http.StatusOK, lw.Code)
	assert.Empty(t, h.sessions.m)
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	h.user(t, "bob@example.com")

	w := h.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())

	w = h.do(http.MethodGet, "/api/me", "bob@example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":true,"email":"bob@example.com","name":"bob"}`, w.Body.String())
}

func TestResourceListingExcludesOwn(t *testing.T) {
	h := newHarness(t)
	h.user(t, "alice@example.com")
	h.user(t, "bob@example.com")
	h.seed(t, "alice@example.com")
	h.seed(t, "bob@example.com")

	type list struct{ Resources []models.Resource }

	all := decode[list](t, h.do(http.MethodGet, "/api/resources", "", nil))
	assert.Len(t, all.Resources, 2)

	forBob := decode[list](t, h.do(http.MethodGet, "/api/resources", "bob@example.com", nil))
	require.Len(t, forBob.Resources, 1)
	assert.Equal(t, "alice@example.com", forBob.Resources[0].OwnerEmail)

	mine := decode[list](t, h.do(http.MethodGet, "/api/my-resources", "bob@example.com", nil))
	require.Len(t, mine.Resources, 1)
	assert.Equal(t, "Sample Notebook", mine.Resources[0].Title)
	assert.Equal(t, "1.00", mine.Resources[0].Price)

	w := h.do(http.MethodGet, "/api/my-resources", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func multipartBody(t *testing.T, fields map[string]string, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("image", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte("\x89PNG fake"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestCreateResourceWithImage(t *testing.T) {
	h := newHarness(t)
	h.user(t, "alice@example.com")
	fields := map[string]string{"title": "Drill", "description": "cordless", "category": "tools", "price": "2.50"}

	post := func(fields map[string]string, file string) *httptest.ResponseRecorder {
		body, ct := multipartBody(t, fields, file)
		req := httptest.NewRequest(http.MethodPost, "/api/resources", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(testUserHeader, "alice@example.com")
		w := httptest.NewRecorder()
		h.r.ServeHTTP(w, req)
		return w
	}

	w := post(fields, "../my drill.PNG")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[struct{ Resource models.Resource }](t, w).Resource
	require.NotNil(t, res.Image)
	assert.Equal(t, "my_drill.PNG", *res.Image)
	assert.Equal(t, "alice@example.com", res.OwnerEmail)
	_, err := os.Stat(filepath.Join(h.uploads, "my_drill.PNG"))
	assert.NoError(t, err)

	// served back under /uploads
	g := h.do(http.MethodGet, "/uploads/my_drill.PNG", "", nil)
	assert.Equal(t, http.StatusOK, g.Code)

	w = post(fields, "notes.txt")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, decode[struct{ Resource models.Resource }](t, w).Resource.Image)

	missing := map[string]string{"title": "Drill", "description": "cordless", "category": "tools", "price": "  "}
	w = post(missing, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing required fields"}`, w.Body.String())
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	const alice, bob = "alice@example.com", "bob@example.com"
	h.user(t, alice)
	h.user(t, bob)
	res := h.seed(t, alice)

	w := h.do(http.MethodPost, "/api/requests", bob, app.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/requests", alice, app.H{"resource_id": res.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code, "self-borrow")

	w = h.do(http.MethodPost, "/api/requests", bob, app.H{"resource_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/api/requests", bob, app.H{"resource_id": res.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		OK      bool
		Request models.Request
	}](t, w)
	assert.True(t, created.OK)
	reqID := created.Request.ID

	w = h.do(http.MethodPost, "/api/requests", bob, app.H{"resource_id": res.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	count := decode[struct{ Count int }](t, h.do(http.MethodGet, "/api/incoming-requests/count", alice, nil))
	assert.Equal(t, 1, count.Count)

	w = h.do(http.MethodPost, "/api/requests/"+reqID+"/approve", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = h.do(http.MethodPost, "/api/requests/"+reqID+"/frobnicate", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPost, "/api/requests/"+uuid.NewString()+"/approve", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/api/requests/"+reqID+"/return", bob, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "pending cannot be returned")

	w = h.do(http.MethodPost, "/api/requests/"+reqID+"/approve", alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = h.do(http.MethodPost, "/api/requests/"+reqID+"/return", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "owner cannot return")

	w = h.do(http.MethodPost, "/api/requests/"+reqID+"/return", bob, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true,"days":1,"total_due":1,"payment_methods":["Cash","UPI"]}`, w.Body.String())

	type list struct{ Requests []models.Request }
	mine := decode[list](t, h.do(http.MethodGet, "/api/my-requests", bob, nil))
	require.Len(t, mine.Requests, 1)
	assert.Equal(t, models.StatusReturned, mine.Requests[0].Status)

	incoming := decode[list](t, h.do(http.MethodGet, "/api/incoming-requests", alice, nil))
	require.Len(t, incoming.Requests, 1)
	assert.Equal(t, "Sample Notebook", incoming.Requests[0].ResourceTitle)

	empty := h.do(http.MethodGet, "/api/incoming-requests", bob, nil)
	assert.JSONEq(t, `{"requests":[]}`, empty.Body.String())

	w = h.do(http.MethodGet, "/api/my-requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClearResourcesOverHTTP(t *testing.T) {
	h := newHarness(t)
	const alice, bob = "alice@example.com", "bob@example.com"
	h.user(t, alice)
	h.user(t, bob)
	a := h.seed(t, alice)
	b := h.seed(t, bob)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/requests", bob, app.H{"resource_id": a.ID}).Code)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/requests", alice, app.H{"resource_id": b.ID}).Code)

	w := h.do(http.MethodPost, "/api/resources/clear", alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t,
		`{"ok":true,"deleted":{"resources":1,"requests_as_owner":1,"requests_as_borrower":1}}`,
		w.Body.String())
}

func TestSPAFallback(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.static, "index.html"), []byte("<html>spa</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(h.static, "app.js"), []byte("console.log(1)"), 0o644))

	w := h.do(http.MethodGet, "/app.js", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = h.do(http.MethodGet, "/dashboard/requests", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "spa")

	w = h.do(http.MethodGet, "/../../etc/passwd", "", nil)
	assert.Contains(t, w.Body.String(), "spa")

	w = h.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
