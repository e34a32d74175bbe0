package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baymax-health/apiserver/config"
	"github.com/baymax-health/apiserver/internal/server"
	"github.com/baymax-health/apiserver/internal/storage"
	"github.com/baymax-health/apiserver/internal/store/memstore"
	"github.com/baymax-health/apiserver/internal/tracker"
	"github.com/baymax-health/apiserver/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	next  http.Handler
	takes atomic.Int32
	lists atomic.Int32
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/take"):
		h.takes.Add(1)
	case r.Method == http.MethodGet && r.URL.Path == "/medicines":
		h.lists.Add(1)
	}
	h.next.ServeHTTP(w, r)
}

func newAPI(t *testing.T) (*httptest.Server, *countingHandler) {
	t.Helper()
	mem := memstore.New()
	srv := server.NewWithDeps(config.Config{
		JWT:      config.JWTConfig{Secret: "client-test", TTL: time.Hour},
		Timezone: "UTC",
	}, server.Deps{
		Users:     mem.Users(),
		Medicines: mem.Medicines(),
		Contacts:  mem.Contacts(),
		Storage:   storage.NewStorage(storage.NewMemoryStorage("reports")),
	})
	counter := &countingHandler{next: srv.Router()}
	ts := httptest.NewServer(counter)
	t.Cleanup(ts.Close)
	return ts, counter
}

func signup(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := New(baseURL, "")
	res, err := c.Signup(context.Background(), SignupRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Phone: "555-0100", Password: "engine1", ConfirmPassword: "engine1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	c.Token = res.Token
	return c
}

func TestClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	ts, _ := newAPI(t)
	c := signup(t, ts.URL)

	_, err := New(ts.URL, "").Login(ctx, "ada@example.com", "nope")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid credentials", apiErr.Message)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	med, err := c.CreateMedicine(ctx, MedicineRequest{
		Name: "Aspirin", Dose: "81", Program: 7, Quantity: 7,
		FoodRelation: "after", DailyDosage: types.DailyDosage{Morning: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, med.Progress.TotalPillsNeeded)

	_, err = c.Take(ctx, med.ID, types.Morning, true, 0)
	require.NoError(t, err)
	edited, err := c.UpdateMedicine(ctx, med.ID, MedicineRequest{
		Name: "Aspirin", Dose: "81", Program: 14, Quantity: 20,
		FoodRelation: string(med.FoodRelation), DailyDosage: types.DailyDosage{Morning: 1, Night: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 28, edited.Progress.TotalPillsNeeded)
	assert.Equal(t, 20, edited.Quantity)
	assert.Len(t, edited.IntakeHistory, 1)
	_, err = c.UpdateMedicine(ctx, med.ID, MedicineRequest{Name: "Aspirin", Dose: "81", Program: 0, FoodRelation: "after", DailyDosage: types.DailyDosage{Morning: 1}})
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	user, err := c.UpdateProfile(ctx, ProfileRequest{FirstName: "Augusta", LastName: "King", Phone: "555-0199"})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", user.FirstName)
	assert.Equal(t, "ada@example.com", user.Email)
	_, err = c.UpdateProfile(ctx, ProfileRequest{FirstName: "Augusta", LastName: "King", Password: "newpass1", ConfirmPassword: "other12"})
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	key, report, err := c.CreateReport(ctx)
	require.NoError(t, err)
	assert.Contains(t, key, report.ID)
	ids, err := c.Reports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{report.ID}, ids)
	got, err := c.Report(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, got.Medicines, 1)
	assert.Equal(t, 1, got.Medicines[0].Progress.PillsConsumed)
	require.NoError(t, c.DeleteReport(ctx, report.ID))
	_, err = c.Report(ctx, report.ID)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	contact, err := c.CreateContact(ctx, ContactRequest{Name: "Main St Pharmacy", Type: "pharmacy", Phone: "555-0120"})
	require.NoError(t, err)
	contacts, err := c.Contacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.NoError(t, c.DeleteContact(ctx, contact.ID))
	err = c.DeleteContact(ctx, contact.ID)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	require.NoError(t, c.Logout(ctx))
	_, err = c.Me(ctx)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestBoardRecordTakeAndUndo(t *testing.T) {
	ctx := context.Background()
	ts, counter := newAPI(t)
	c := signup(t, ts.URL)
	med, err := c.CreateMedicine(ctx, MedicineRequest{
		Name: "Metformin", Dose: "500", Program: 10, Quantity: 20,
		FoodRelation: "after", DailyDosage: types.DailyDosage{Morning: 1, Night: 1},
	})
	require.NoError(t, err)

	board := NewBoard(c, time.UTC)
	require.NoError(t, board.Refresh(ctx))

	got, err := board.Record(ctx, med.ID, types.Morning, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 19, got.Quantity)

	schedule := board.Schedule()
	require.Len(t, schedule.Morning, 1)
	assert.True(t, schedule.Morning[0].Taken)

	serverSchedule, err := c.Today(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(serverSchedule, schedule); diff != "" {
		t.Errorf("local schedule differs from server (-server +local):\n%s", diff)
	}

	_, err = board.Record(ctx, med.ID, types.Morning, true, 0)
	assert.ErrorIs(t, err, tracker.ErrAlreadyTaken)

	got, err = board.Record(ctx, med.ID, types.Morning, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Quantity)
	assert.Equal(t, int32(2), counter.takes.Load())

	var buf bytes.Buffer
	require.NoError(t, RenderSchedule(&buf, board.Schedule()))
	assert.Contains(t, buf.String(), "MORNING")
	assert.Contains(t, buf.String(), "[ ]  Metformin 500")
}

func TestBoardRefusesUncoveredDoseLocally(t *testing.T) {
	ctx := context.Background()
	ts, counter := newAPI(t)
	c := signup(t, ts.URL)
	med, err := c.CreateMedicine(ctx, MedicineRequest{
		Name: "Ibuprofen", Dose: "200", Program: 3, Quantity: 1,
		FoodRelation: "after", DailyDosage: types.DailyDosage{Morning: 2},
	})
	require.NoError(t, err)

	board := NewBoard(c, time.UTC)
	require.NoError(t, board.Refresh(ctx))

	_, err = board.Record(ctx, med.ID, types.Morning, true, 0)
	assert.ErrorIs(t, err, tracker.ErrInsufficientStock)
	assert.Equal(t, int32(0), counter.takes.Load())

	m, err := board.Resolve("ibuprofen")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Quantity)
}

func TestBoardRollsBackAndRefetchesOnFailure(t *testing.T) {
	ctx := context.Background()
	stored := Medicine{Medicine: types.Medicine{
		ID: "m1", Name: "Aspirin", Dose: "81", Program: 7, Quantity: 7,
		DailyDosage: types.DailyDosage{Morning: 1}, Status: types.StatusActive,
		IntakeHistory: []types.IntakeEntry{},
	}}

	var lists atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/medicines":
			lists.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "success",
				"data":   map[string]any{"medicines": []Medicine{stored}},
			})
		case r.URL.Path == "/medicines/m1/take":
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "failed to record intake"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	board := NewBoard(New(ts.URL, "token"), time.UTC)
	require.NoError(t, board.Refresh(ctx))

	_, err := board.Record(ctx, "m1", types.Morning, true, 0)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.Equal(t, int32(2), lists.Load())

	meds := board.Medicines()
	require.Len(t, meds, 1)
	assert.Equal(t, 7, meds[0].Quantity)
	assert.Empty(t, meds[0].IntakeHistory)
}

func TestResolveAmbiguousName(t *testing.T) {
	board := NewBoard(New("", ""), nil)
	board.meds = []types.Medicine{{ID: "a", Name: "Aspirin"}, {ID: "b", Name: "aspirin"}}

	_, err := board.Resolve("ASPIRIN")
	require.Error(t, err)
	m, err := board.Resolve("b")
	require.NoError(t, err)
	assert.Equal(t, "b", m.ID)
	_, err = board.Resolve("nope")
	assert.ErrorIs(t, err, ErrUnknownMedicine)
}

func TestSessionLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baymax", "session.yaml")

	_, err := LoadSession(path)
	assert.ErrorIs(t, err, ErrNoSession)

	want := Session{BaseURL: "http://localhost:8080", Token: "t0k3n", UserID: "u1", Email: "ada@example.com", Name: "Ada"}
	require.NoError(t, want.Save(path))

	got, err := LoadSession(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "t0k3n", got.Client().Token)

	require.NoError(t, ClearSession(path))
	_, err = LoadSession(path)
	assert.ErrorIs(t, err, ErrNoSession)
	require.NoError(t, ClearSession(path))
}
