package state

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/fintracker/internal/model"
)

// postgrestFake serves the subset of PostgREST the Supabase store uses:
// select, upsert on user_id and delete, all filtered by user_id=eq.<id>.
type postgrestFake struct {
	mu   sync.Mutex
	rows map[string]model.UserState
}

func newPostgrestFake(t *testing.T, table string) (*postgrestFake, string) {
	t.Helper()
	f := &postgrestFake{rows: map[string]model.UserState{}}

	r := mux.NewRouter()
	r.HandleFunc("/rest/v1/"+table, f.selectRows).Methods(http.MethodGet)
	r.HandleFunc("/rest/v1/"+table, f.upsert).Methods(http.MethodPost)
	r.HandleFunc("/rest/v1/"+table, f.delete).Methods(http.MethodDelete)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func userFilter(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Query().Get("user_id"), "eq.")
}

func writeRows(w http.ResponseWriter, rows []model.UserState) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func (f *postgrestFake) selectRows(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := []model.UserState{}
	if row, ok := f.rows[userFilter(r)]; ok {
		rows = append(rows, row)
	}
	writeRows(w, rows)
}

func (f *postgrestFake) upsert(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("on_conflict") != "user_id" ||
		!strings.Contains(r.Header.Get("Prefer"), "resolution=merge-duplicates") {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value"}`))
		return
	}
	var row model.UserState
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"PGRST102","message":"invalid body"}`))
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[strconv.FormatInt(row.UserID, 10)] = row
	w.WriteHeader(http.StatusCreated)
	writeRows(w, []model.UserState{row})
}

func (f *postgrestFake) delete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := []model.UserState{}
	if row, ok := f.rows[userFilter(r)]; ok {
		rows = append(rows, row)
		delete(f.rows, userFilter(r))
	}
	writeRows(w, rows)
}

func newTestSupabaseStore(t *testing.T, ttl time.Duration) (*SupabaseStore, *postgrestFake) {
	t.Helper()
	fake, url := newPostgrestFake(t, "user_states")
	s, err := NewSupabaseStore(url, "service-key", "user_states", ttl)
	require.NoError(t, err)
	return s, fake
}

func TestSupabaseStoreContract(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, _ := newTestSupabaseStore(t, time.Hour)
		return s
	})
}

func TestSupabaseStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSupabaseStore(t, time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, 1, TransferDetails(model.Income)))
	require.NoError(t, s.UpdateContext(ctx, 1, map[string]string{"k": "v"}))

	now = now.Add(2 * time.Minute)
	snap, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.Context)
}

func TestSupabaseStoreSetIdleDeletesRow(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestSupabaseStore(t, 0)

	require.NoError(t, s.Set(ctx, 9, LoginUsername))
	assert.Len(t, fake.rows, 1)

	require.NoError(t, s.Set(ctx, 9, Idle))
	assert.Empty(t, fake.rows)
}

func TestSupabaseStoreBackendError(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/rest/v1/user_states", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"XX000","message":"boom"}`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	s, err := NewSupabaseStore(srv.URL, "service-key", "user_states", time.Hour)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.Error(t, s.Set(context.Background(), 1, LoginUsername))
}
