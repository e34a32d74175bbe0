package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baymax-health/apiserver/config"
	"github.com/baymax-health/apiserver/internal/metrics"
	"github.com/baymax-health/apiserver/internal/mq"
	"github.com/baymax-health/apiserver/internal/notify"
	"github.com/baymax-health/apiserver/internal/storage"
	"github.com/baymax-health/apiserver/internal/store/memstore"
	"github.com/baymax-health/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []types.IntakeEvent
}

func (p *recordingPublisher) PublishJSON(_ context.Context, channel string, v any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, channel)
	if ev, ok := v.(types.IntakeEvent); ok {
		p.events = append(p.events, ev)
	}
	return "1", nil
}

func testConfig() config.Config {
	return config.Config{
		JWT:          config.JWTConfig{Secret: "test-secret", TTL: time.Hour},
		StoreBackend: config.BackendMemory,
		IntakeTopic:  "intake.recorded",
		Timezone:     "UTC",
	}
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	out, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec.Code, out
}

func TestRoutesWiredOverMemstore(t *testing.T) {
	mem := memstore.New()
	events := &recordingPublisher{}
	m := metrics.New()
	srv := NewWithDeps(testConfig(), Deps{
		Users:     mem.Users(),
		Medicines: mem.Medicines(),
		Contacts:  mem.Contacts(),
		Events:    events,
		Storage:   storage.NewStorage(storage.NewMemoryStorage("reports")),
		Metrics:   m,
	})
	router := srv.Router()

	status, body := call(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"OK"`)

	status, body = call(t, router, http.MethodPost, "/auth/signup", "", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
		"phone": "555-0100", "password": "engine1", "confirmPassword": "engine1",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var signup struct {
		Status string `json:"status"`
		Data   struct {
			Token string     `json:"token"`
			User  types.User `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &signup))
	assert.Equal(t, "success", signup.Status)
	token := signup.Data.Token

	status, body = call(t, router, http.MethodPost, "/medicines", token, map[string]any{
		"name": "Lisinopril", "dose": "10", "program": 30, "quantity": 30,
		"foodRelation": "Before food", "dailyDosage": map[string]int{"morning": 1},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		Data struct {
			Medicine types.Medicine `json:"medicine"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	id := created.Data.Medicine.ID

	status, body = call(t, router, http.MethodPost, "/medicines/"+id+"/take", token, map[string]any{
		"timeOfDay": "morning", "taken": true,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	require.Len(t, events.events, 1)
	assert.Equal(t, []string{"intake.recorded"}, events.topics)
	assert.Equal(t, 29, events.events[0].Quantity)
	assert.Equal(t, 29, events.events[0].DaysOfStock)

	status, body = call(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `baymax_intakes_total{action="take",time_of_day="morning"} 1`)
	assert.Contains(t, string(body), `route="/medicines/{medicineID}/take"`)

	status, body = call(t, router, http.MethodPost, "/reports", token, nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.True(t, strings.Contains(string(body), `"key":"reports/`))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Secret = ""
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestNewWithMemoryBackend(t *testing.T) {
	cfg := testConfig()
	cfg.MQBackend = config.MQNone
	cfg.StorageBackend = config.StorageNone
	srv, err := New(context.Background(), cfg)
	require.NoError(t, err)

	status, body := call(t, srv.Router(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}

func signupToken(t *testing.T, h http.Handler) string {
	t.Helper()
	status, body := call(t, h, http.MethodPost, "/auth/signup", "", map[string]string{
		"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com",
		"phone": "555-0101", "password": "cobol59", "confirmPassword": "cobol59",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Data.Token
}

func createLowStockMedicine(t *testing.T, h http.Handler, token string) string {
	t.Helper()
	status, body := call(t, h, http.MethodPost, "/medicines", token, map[string]any{
		"name": "Warfarin", "dose": "5", "program": 30, "quantity": 2,
		"foodRelation": "after", "dailyDosage": map[string]int{"morning": 1},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var out struct {
		Data struct {
			Medicine types.Medicine `json:"medicine"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Data.Medicine.ID
}

// takeUntil takes and undoes the morning dose until cond holds. The
// notifier subscribes in the background, so the first events may be
// published before it listens.
func takeUntil(t *testing.T, h http.Handler, token, id string, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		status, _ := call(t, h, http.MethodPost, "/medicines/"+id+"/take", token, map[string]any{
			"timeOfDay": "morning", "taken": true,
		})
		if status != http.StatusOK {
			return false
		}
		for i := 0; i < 10; i++ {
			if cond() {
				return true
			}
			time.Sleep(5 * time.Millisecond)
		}
		call(t, h, http.MethodPost, "/medicines/"+id+"/take", token, map[string]any{
			"timeOfDay": "morning", "taken": false,
		})
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

type recordingMailer struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (m *recordingMailer) Send(_ context.Context, a notify.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *recordingMailer) sent() []notify.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Alert(nil), m.alerts...)
}

func TestRunNotifierAlertsOnLowStock(t *testing.T) {
	mem := memstore.New()
	queue := mq.New(mq.NewLocal())
	srv := NewWithDeps(testConfig(), Deps{
		Users:     mem.Users(),
		Medicines: mem.Medicines(),
		Contacts:  mem.Contacts(),
		Events:    queue,
	})
	mailer := &recordingMailer{}
	srv.RunNotifier(queue, notify.New(mem.Users(), mailer, 3, nil, time.UTC), "intake.recorded")

	router := srv.Router()
	token := signupToken(t, router)
	id := createLowStockMedicine(t, router, token)

	takeUntil(t, router, token, id, func() bool { return len(mailer.sent()) > 0 })

	alerts := mailer.sent()
	require.Len(t, alerts, 1)
	assert.Equal(t, notify.Alert{
		To: "grace@example.com", FirstName: "Grace", MedicineName: "Warfarin",
		Quantity: 1, DaysOfStock: 1,
	}, alerts[0])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}

func TestNewWithInProcessBackends(t *testing.T) {
	cfg := testConfig()
	cfg.MQBackend = config.MQLocal
	cfg.StorageBackend = config.StorageMemory
	cfg.Minio.Bucket = "baymax-reports"
	cfg.Mail.LowStockDays = 3
	srv, err := New(context.Background(), cfg)
	require.NoError(t, err)

	router := srv.Router()
	token := signupToken(t, router)
	id := createLowStockMedicine(t, router, token)

	const sent = `baymax_low_stock_alerts_total{result="sent"} 1`
	takeUntil(t, router, token, id, func() bool {
		_, body := call(t, router, http.MethodGet, "/metrics", "", nil)
		return strings.Contains(string(body), sent)
	})

	status, body := call(t, router, http.MethodPost, "/reports", token, nil)
	require.Equal(t, http.StatusCreated, status, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
