package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hostel-sync-backend/config"
	"hostel-sync-backend/internal/allocation"
	"hostel-sync-backend/internal/cache"
	"hostel-sync-backend/internal/gateway"
	"hostel-sync-backend/internal/model"
	"hostel-sync-backend/internal/requests"
	"hostel-sync-backend/internal/snapshot"
	"hostel-sync-backend/internal/syncer"
)

// fakeRemote is an in-memory stand-in for the remote store's REST API. It
// understands the eq.<value> filter syntax on any column and applies inserts,
// patches and deletes against its row maps.
type fakeRemote struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{tables: map[string][]map[string]any{
		"profiles":         {},
		"rooms":            {},
		"room_allocations": {},
		"notices":          {},
		"service_requests": {},
		"hostel_rules":     {},
		"payments":         {},
	}}
}

func (f *fakeRemote) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		table := strings.TrimPrefix(r.URL.Path, "/")
		rows, ok := f.tables[table]
		if !ok {
			http.Error(w, fmt.Sprintf("unknown table %q", table), http.StatusNotFound)
			return
		}

		matches := func(row map[string]any) bool {
			for key, values := range r.URL.Query() {
				if key == "select" || key == "order" {
					continue
				}
				want, found := strings.CutPrefix(values[0], "eq.")
				if !found {
					continue
				}
				if fmt.Sprintf("%v", row[key]) != want {
					return false
				}
			}
			return true
		}

		switch r.Method {
		case http.MethodGet:
			out := []map[string]any{}
			for _, row := range rows {
				if matches(row) {
					out = append(out, row)
				}
			}
			_ = json.NewEncoder(w).Encode(out)
		case http.MethodPost:
			var row map[string]any
			if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.tables[table] = append(rows, row)
			w.WriteHeader(http.StatusCreated)
		case http.MethodPatch:
			var patch map[string]any
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			for _, row := range rows {
				if matches(row) {
					for k, v := range patch {
						row[k] = v
					}
				}
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			kept := rows[:0]
			for _, row := range rows {
				if !matches(row) {
					kept = append(kept, row)
				}
			}
			f.tables[table] = kept
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
		}
	})
}

func (f *fakeRemote) seed(table string, rows ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], rows...)
}

func (f *fakeRemote) count(table string, match func(map[string]any) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.tables[table] {
		if match(row) {
			n++
		}
	}
	return n
}

type testApp struct {
	router *gin.Engine
	remote *fakeRemote
	syncer *syncer.Syncer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	remote := newFakeRemote()
	server := httptest.NewServer(remote.handler())
	t.Cleanup(server.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Profile{}, &model.Room{}, &model.Notice{},
		&model.HostelRule{}, &model.ServiceRequest{}, &model.PushSubscription{},
	))
	snapStore := snapshot.NewGormStore(db)

	entityCache := cache.New()
	gw := gateway.NewClient(&config.RemoteConfig{URL: server.URL, TimeoutSeconds: 5})
	collectionSyncer := syncer.New(gw, entityCache, snapStore, nil)

	handler := NewHandler(
		entityCache,
		allocation.NewCoordinator(gw, entityCache, collectionSyncer),
		requests.NewService(gw, collectionSyncer),
		gw,
		collectionSyncer,
		snapStore,
		&webpush.Options{VAPIDPublicKey: "test-public-key"},
	)
	router := NewRouter(handler, &config.ServerConfig{
		IdentityHeader:  "X-User-Id",
		NameHeader:      "X-User-Name",
		RoleHeader:      "X-User-Role",
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 1,
	})

	return &testApp{router: router, remote: remote, syncer: collectionSyncer}
}

func (app *testApp) seedHostel(t *testing.T) {
	t.Helper()
	app.remote.seed("rooms",
		map[string]any{"id": "R1", "number": "101", "block": "A", "capacity": float64(2), "status": "available"},
		map[string]any{"id": "R2", "number": "102", "block": "A", "capacity": float64(1), "status": "available"},
	)
	app.remote.seed("profiles",
		map[string]any{"id": "S1", "name": "Asha", "role": "student", "payment_status": "paid"},
		map[string]any{"id": "S2", "name": "Binta", "role": "student", "payment_status": "pending"},
		map[string]any{"id": "S3", "name": "Chen", "role": "student", "payment_status": "paid"},
		map[string]any{"id": "A1", "name": "Warden", "role": "admin"},
	)
	require.NoError(t, app.syncer.RefreshAll(context.Background()))
}

func (app *testApp) do(method, path, body string, asAdmin bool) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if asAdmin {
		req.Header.Set("X-User-Id", "A1")
		req.Header.Set("X-User-Name", "Warden")
		req.Header.Set("X-User-Role", "admin")
	} else {
		req.Header.Set("X-User-Id", "S1")
		req.Header.Set("X-User-Name", "Asha")
		req.Header.Set("X-User-Role", "student")
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func TestAllocationLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	app.seedHostel(t)

	// Two students fit in the two-bed room.
	w := app.do(http.MethodPost, "/api/rooms/R1/allocations", `{"student_id":"S1"}`, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = app.do(http.MethodPost, "/api/rooms/R1/allocations", `{"student_id":"S2"}`, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// A third gets a conflict and no ledger row is written.
	w = app.do(http.MethodPost, "/api/rooms/R1/allocations", `{"student_id":"S3"}`, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	rows := app.remote.count("room_allocations", func(row map[string]any) bool {
		return row["profile_id"] == "S3"
	})
	assert.Zero(t, rows)

	// The room status was recomputed remotely.
	full := app.remote.count("rooms", func(row map[string]any) bool {
		return row["id"] == "R1" && fmt.Sprintf("%v", row["status"]) == "full"
	})
	assert.Equal(t, 1, full)

	// Deallocating one occupant reopens the room.
	w = app.do(http.MethodDelete, "/api/rooms/R1/allocations/S1", "", true)
	require.Equal(t, http.StatusNoContent, w.Code)
	available := app.remote.count("rooms", func(row map[string]any) bool {
		return row["id"] == "R1" && fmt.Sprintf("%v", row["status"]) == "available"
	})
	assert.Equal(t, 1, available)

	// Deallocating again is a 404, not a silent success.
	w = app.do(http.MethodDelete, "/api/rooms/R1/allocations/S1", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAllocationRequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	app.seedHostel(t)

	w := app.do(http.MethodPost, "/api/rooms/R1/allocations", `{"student_id":"S1"}`, false)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAllocateRoom_MissingStudentID(t *testing.T) {
	app := newTestApp(t)
	app.seedHostel(t)

	w := app.do(http.MethodPost, "/api/rooms/R1/allocations", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStudents_RoleScoped(t *testing.T) {
	app := newTestApp(t)
	app.seedHostel(t)

	w := app.do(http.MethodGet, "/api/students", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var adminView []model.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &adminView))
	assert.Len(t, adminView, 4)

	w = app.do(http.MethodGet, "/api/students", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var studentView []model.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &studentView))
	require.Len(t, studentView, 1)
	assert.Equal(t, "S1", studentView[0].ID)
}

func TestGetStudentRoom(t *testing.T) {
	app := newTestApp(t)
	app.seedHostel(t)

	w := app.do(http.MethodGet, "/api/students/S1/room", "", false)
	assert.Equal(t, http.StatusNotFound, w.Code, "no allocation yet")

	require.Equal(t, http.StatusCreated,
		app.do(http.MethodPost, "/api/rooms/R2/allocations", `{"student_id":"S1"}`, true).Code)

	w = app.do(http.MethodGet, "/api/students/S1/room", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var room model.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	assert.Equal(t, "R2", room.ID)
}

func TestServiceRequestWorkflowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	app.seedHostel(t)

	w := app.do(http.MethodPost, "/api/requests",
		`{"title":"Leaking tap","category":"plumbing","room_id":"R1"}`, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The student sees their own pending request.
	w = app.do(http.MethodGet, "/api/requests", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var own []model.ServiceRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &own))
	require.Len(t, own, 1)
	assert.Equal(t, model.RequestPending, own[0].Status)
	id := own[0].ID

	// A student may not move the status.
	w = app.do(http.MethodPatch, "/api/requests/"+id, `{"status":"resolved"}`, false)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// An admin may, with a comment.
	w = app.do(http.MethodPatch, "/api/requests/"+id,
		`{"status":"in-progress","comment":"plumber scheduled"}`, true)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = app.do(http.MethodGet, "/api/requests", "", false)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &own))
	require.Len(t, own, 1)
	assert.Equal(t, model.RequestInProgress, own[0].Status)
	require.Len(t, own[0].Comments, 1)
	assert.Equal(t, "plumber scheduled", own[0].Comments[0].Text)
}

func TestUpdateStudent_FieldWhitelist(t *testing.T) {
	app := newTestApp(t)
	app.seedHostel(t)

	// A student cannot edit another profile.
	req := httptest.NewRequest(http.MethodPatch, "/api/students/S2", strings.NewReader(`{"phone":"123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "S1")
	req.Header.Set("X-User-Role", "student")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Payment standing silently drops out of a self-edit; with nothing left
	// the patch is rejected.
	w2 := app.do(http.MethodPatch, "/api/students/S1", `{"payment_status":"paid"}`, false)
	assert.Equal(t, http.StatusBadRequest, w2.Code)

	// An admin can set it.
	w2 = app.do(http.MethodPatch, "/api/students/S2", `{"payment_status":"paid"}`, true)
	require.Equal(t, http.StatusNoContent, w2.Code)
	updated := app.remote.count("profiles", func(row map[string]any) bool {
		return row["id"] == "S2" && fmt.Sprintf("%v", row["payment_status"]) == "paid"
	})
	assert.Equal(t, 1, updated)
}

func TestDeleteStudent_EndsAllocation(t *testing.T) {
	app := newTestApp(t)
	app.seedHostel(t)

	require.Equal(t, http.StatusCreated,
		app.do(http.MethodPost, "/api/rooms/R2/allocations", `{"student_id":"S1"}`, true).Code)

	w := app.do(http.MethodDelete, "/api/students/S1", "", true)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	assert.Zero(t, app.remote.count("profiles", func(row map[string]any) bool {
		return row["id"] == "S1"
	}))
	assert.Zero(t, app.remote.count("room_allocations", func(row map[string]any) bool {
		return row["profile_id"] == "S1" && row["is_current"] == true
	}))
	assert.Equal(t, 1, app.remote.count("rooms", func(row map[string]any) bool {
		return row["id"] == "R2" && fmt.Sprintf("%v", row["status"]) == "available"
	}))
}

func TestPutSubscription_BindingFailures(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing keys", `{"endpoint":"https://push.example/abc"}`},
		{"malformed json", `{not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := app.do(http.MethodPut, "/api/subscriptions", tc.body, false)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSubscriptionRoundTripOverHTTP(t *testing.T) {
	app := newTestApp(t)
	app.seedHostel(t)

	body := `{"endpoint":"https://push.example/abc","p256dh":"key","auth":"secret","subscribed_rooms":["R1"],"notify_notices":true}`
	w := app.do(http.MethodPut, "/api/subscriptions", body, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		SubscribedRooms []string `json:"subscribed_rooms"`
		NotifyNotices   bool     `json:"notify_notices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"R1"}, got.SubscribedRooms)
	assert.True(t, got.NotifyNotices)

	w = app.do(http.MethodDelete, "/api/subscriptions", `{"endpoint":"https://push.example/abc"}`, false)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = app.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/api/vapid_public_key", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, w.Body.String())
}
