package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/oasislearninghub/oasis/internal/core"
	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
	apperrors "github.com/oasislearninghub/oasis/internal/errors"
	"github.com/oasislearninghub/oasis/internal/server/handlers"
	"github.com/oasislearninghub/oasis/internal/session"
)

type memoryEnrollments map[string]core.Enrollment

func (m memoryEnrollments) LookupEnrollment(_ context.Context, id string) (*core.Enrollment, error) {
	e, ok := m[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m memoryEnrollments) ListEnrollments(context.Context) ([]core.Enrollment, error) {
	out := make([]core.Enrollment, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	return out, nil
}

var testEnrollments = memoryEnrollments{
	"ENR-1001": {
		ID:          "ENR-1001",
		StudentName: "Ada Lovelace",
		ParentName:  "Anne",
		Phone:       "5551234567",
		Program:     "STEM Explorers",
		SubmittedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Status:      core.StatusConfirmed,
	},
}

func newTestServer(t *testing.T, cfg Config) (*Server, *session.Manager) {
	t.Helper()

	opts := session.DefaultOptions()
	opts.Policies = ratelimit.Policies{
		ratelimit.PolicyGlobal: {Name: ratelimit.PolicyGlobal, Capacity: 10, Window: time.Minute},
		ratelimit.PolicyClick:  {Name: ratelimit.PolicyClick, Capacity: 1, Window: 10 * time.Second},
		ratelimit.PolicyForm:   {Name: ratelimit.PolicyForm, Capacity: 1, Window: 5 * time.Minute},
	}
	opts.Carousel.Autoplay = false
	opts.Enrollments = testEnrollments

	manager := session.NewManager(opts)
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	srv := New(cfg, Deps{
		Sessions:    manager,
		Enrollments: testEnrollments,
		Policies:    opts.Policies,
		Health:      handlers.NewHealthManager("test"),
	})
	return srv, manager
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv, _ := newTestServer(t, Config{Host: "127.0.0.1"})

	rec := do(t, srv.Handler(), http.MethodGet, "/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, apperrors.CodeNotFound, decodeError(t, rec).Error.Code)

	rec = do(t, srv.Handler(), http.MethodPut, "/v1/policies", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPoliciesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Config{})

	rec := do(t, srv.Handler(), http.MethodGet, "/v1/policies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.Contains(t, rec.Body.String(), `"click"`)

	rec = do(t, srv.Handler(), http.MethodGet, "/v1/policies?format=markdown", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv.Handler(), http.MethodGet, "/v1/policies?format=csv", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnrollmentEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/v1/enrollments/ENR-1001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var e core.Enrollment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	require.Equal(t, "Ada Lovelace", e.StudentName)

	rec = do(t, h, http.MethodGet, "/v1/enrollments/ENR-1001/receipt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "<title>Enrollment Receipt - ENR-1001</title>")

	rec = do(t, h, http.MethodGet, "/v1/enrollments/ENR-1001/receipt?format=table", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "(555) 123-4567")

	rec = do(t, h, http.MethodGet, "/v1/enrollments/ENR-404", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Enrollment not found", decodeError(t, rec).Error.Message)

	rec = do(t, h, http.MethodGet, "/v1/enrollments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ENR-1001")
}

func TestSessionLifecycle(t *testing.T) {
	srv, manager := newTestServer(t, Config{})
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var st session.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	require.NotEmpty(t, st.ID)
	require.Equal(t, "/v1/sessions/"+st.ID, rec.Header().Get("Location"))
	require.Equal(t, 1, manager.Len())

	events := "/v1/sessions/" + st.ID + "/events"

	rec = do(t, h, http.MethodPost, events, session.Input{Kind: session.KindClick, Target: session.TargetCarouselNext})
	require.Equal(t, http.StatusOK, rec.Code)
	var out session.Outcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.True(t, out.Allowed)
	require.Equal(t, 1, out.Carousel.Index)

	rec = do(t, h, http.MethodPost, events, session.Input{Kind: session.KindClick, Target: session.TargetCarouselNext})
	require.Equal(t, http.StatusOK, rec.Code)
	out = session.Outcome{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.False(t, out.Allowed)
	require.True(t, out.Prevented)
	require.Equal(t, 2, out.Carousel.Index)
	require.NotNil(t, out.Notice)
	require.True(t, strings.HasPrefix(out.Notice.Message, "Too many requests. Please wait "))

	rec = do(t, h, http.MethodPost, events, session.Input{Kind: "scroll"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, events, session.Input{Kind: session.KindLookup, ID: "ENR-404"})
	require.Equal(t, http.StatusOK, rec.Code)
	out = session.Outcome{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.False(t, out.Allowed)

	rec = do(t, h, http.MethodGet, "/v1/sessions/"+st.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/v1/sessions/"+st.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/sessions/"+st.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, "/v1/sessions/"+st.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionLookupMissRaisesAlert(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var st session.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))

	rec = do(t, h, http.MethodPost, "/v1/sessions/"+st.ID+"/events", session.Input{Kind: session.KindLookup, ID: "ENR-404"})
	require.Equal(t, http.StatusOK, rec.Code)

	var out session.Outcome
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.True(t, out.Allowed)
	require.NotNil(t, out.Alert)
	require.Equal(t, session.NotFoundMessage, out.Alert.Message)
}

func TestIngressLimit(t *testing.T) {
	srv, _ := newTestServer(t, Config{Ingress: IngressConfig{Enabled: true, RPS: 0.5, Burst: 2, ClientTTL: time.Minute}})
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/v1/policies", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/v1/policies", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "2", rec.Header().Get("Retry-After"))

	body := decodeError(t, rec)
	require.Equal(t, apperrors.CodeRateLimited, body.Error.Code)
	require.Equal(t, "Too many requests. Please wait 2 seconds.", body.Error.Message)

	// Health is outside /v1 and never throttled.
	rec = do(t, h, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionStream(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	var st session.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	_ = resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/" + st.ID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first handlers.StreamMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, "state", first.Type)
	require.NotNil(t, first.State)
	require.Equal(t, st.ID, first.State.ID)

	require.NoError(t, conn.WriteJSON(session.Input{Kind: session.KindKeyDown, Key: "ArrowRight"}))

	var sawCarousel, sawOutcome bool
	for !(sawCarousel && sawOutcome) {
		var msg handlers.StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		switch msg.Type {
		case "frame":
			if msg.Frame.Type == session.FrameCarousel {
				require.Equal(t, 1, msg.Frame.Carousel.Index)
				sawCarousel = true
			}
		case "outcome":
			require.Equal(t, 1, msg.Outcome.Carousel.Index)
			sawOutcome = true
		default:
			t.Fatalf("unexpected message type %q", msg.Type)
		}
	}
}

func TestSessionStreamUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	rec := do(t, srv.Handler(), http.MethodGet, "/v1/sessions/missing/stream", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
