package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiPrefix = "/api/v1"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sessionAPI accepts requests carrying the current access cookie and
// rotates it on every successful refresh.
type sessionAPI struct {
	mu           sync.Mutex
	valid        string
	hits         map[string]int
	alwaysReject bool

	refreshStatus int
	refreshGate   chan struct{}
	refreshes     atomic.Int32
}

func newSessionAPI() *sessionAPI {
	return &sessionAPI{valid: "token-1", hits: map[string]int{}}
}

func (a *sessionAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.hits[r.Method+" "+r.URL.RequestURI()]++
	a.mu.Unlock()

	switch r.URL.Path {
	case apiPrefix + "/auth/refresh":
		n := a.refreshes.Add(1)
		if a.refreshGate != nil {
			<-a.refreshGate
		}
		if a.refreshStatus != 0 && a.refreshStatus != http.StatusOK {
			writeJSON(w, a.refreshStatus, map[string]string{"detail": "Refresh token expired"})
			return
		}
		token := "token-" + strconv.Itoa(int(n)+1)
		a.mu.Lock()
		a.valid = token
		a.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: token, Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, map[string]string{"message": "refreshed"})
	case apiPrefix + "/auth/login", apiPrefix + "/auth/register", apiPrefix + "/auth/register/":
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
	default:
		cookie, err := r.Cookie("access_token")
		a.mu.Lock()
		ok := err == nil && cookie.Value == a.valid && !a.alwaysReject
		a.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"path": r.URL.Path, "n": r.URL.Query().Get("n")})
	}
}

func (a *sessionAPI) hit(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[key]
}

type expiryRecorder struct {
	calls atomic.Int32
	mu    sync.Mutex
	last  error
}

func (e *expiryRecorder) record(err error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.last = err
	e.mu.Unlock()
}

func (e *expiryRecorder) lastErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func newTestClient(t *testing.T, h http.Handler) (*Client, *expiryRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rec := &expiryRecorder{}
	client := NewClient(ClientOpts{BaseURL: srv.URL + apiPrefix, OnSessionExpired: rec.record})
	return client, rec
}

func feedRequest(i int) Request {
	return Request{Method: http.MethodGet, Path: "/posts/feed", Query: url.Values{"n": {strconv.Itoa(i)}}}
}

func TestClientDo(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes a successful response", func(t *testing.T) {
		var got http.Header
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			assert.Equal(t, "/api/v1/posts/explore", r.URL.Path)
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}))

		resp, err := client.Do(ctx, Request{Path: "/posts/explore", Query: pageQuery(0, 10)})
		require.NoError(t, err)
		assert.True(t, resp.IsJSON)

		var out map[string]string
		require.NoError(t, resp.Decode(&out))
		assert.Equal(t, "ok", out["status"])

		assert.Equal(t, "application/json", got.Get("Content-Type"))
		_, err = uuid.Parse(got.Get("X-Request-ID"))
		assert.NoError(t, err)
	})

	t.Run("sends a JSON body", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, http.MethodPut, r.Method)
			writeJSON(w, http.StatusOK, body)
		}))

		var out map[string]string
		require.NoError(t, client.Put(ctx, "/users/me", map[string]string{"bio": "hi"}, &out))
		assert.Equal(t, "hi", out["bio"])
	})

	t.Run("no content leaves out untouched", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		out := map[string]string{"kept": "yes"}
		require.NoError(t, client.Delete(ctx, "/posts/1", &out))
		assert.Equal(t, "yes", out["kept"])

		resp, err := client.Do(ctx, Request{Method: http.MethodDelete, Path: "/posts/1"})
		require.NoError(t, err)
		assert.True(t, resp.NoContent)
	})

	t.Run("non-2xx returns an APIError", func(t *testing.T) {
		tests := []struct {
			name       string
			status     int
			body       any
			wantDetail string
		}{
			{"detail string", http.StatusNotFound, map[string]string{"detail": "Post not found"}, "Post not found"},
			{"message field", http.StatusBadRequest, map[string]string{"message": "bad tag"}, "bad tag"},
			{"validation list", http.StatusUnprocessableEntity, map[string]any{
				"detail": []map[string]any{{"loc": []string{"body", "content"}, "msg": "field required"}},
			}, "field required"},
			{"no detail", http.StatusInternalServerError, map[string]string{}, "API Error"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, tt.status, tt.body)
				}))

				_, err := client.Do(ctx, Request{Path: "/posts/feed"})
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.status, apiErr.Status)
				assert.Equal(t, tt.wantDetail, apiErr.Detail)
				assert.NotNil(t, apiErr.Body)
				assert.Zero(t, rec.calls.Load())
			})
		}
	})

	t.Run("plain text error body", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))

		_, err := client.Do(ctx, Request{Path: "/posts/feed"})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "upstream down", apiErr.Body)
		assert.Equal(t, "API Error", apiErr.Detail)
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		client := NewClient(ClientOpts{BaseURL: base})
		_, err := client.Do(ctx, Request{Path: "/posts/feed"})
		assert.ErrorIs(t, err, ErrNetworkFailure)

		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, "/posts/feed", netErr.Path)
	})

	t.Run("rate limit still completes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		}))
		t.Cleanup(srv.Close)

		client := NewClient(ClientOpts{BaseURL: srv.URL, RateLimit: 1000})
		for range 3 {
			require.NoError(t, client.Get(ctx, "/health", nil))
		}
	})
}

func TestClientSessionRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("single 401 refreshes and retries", func(t *testing.T) {
		api := newSessionAPI()
		client, rec := newTestClient(t, api)

		resp, err := client.Do(ctx, feedRequest(0))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.EqualValues(t, 1, api.refreshes.Load())
		assert.Equal(t, 2, api.hit("GET /api/v1/posts/feed?n=0"))
		assert.Zero(t, rec.calls.Load())

		_, err = client.Do(ctx, feedRequest(1))
		require.NoError(t, err)
		assert.EqualValues(t, 1, api.refreshes.Load(), "renewed cookie should be reused")
	})

	t.Run("concurrent 401s share one refresh", func(t *testing.T) {
		api := newSessionAPI()
		api.refreshGate = make(chan struct{})
		client, rec := newTestClient(t, api)

		const n = 8
		errs := make(chan error, n)
		for i := range n {
			go func() {
				_, err := client.Do(ctx, feedRequest(i))
				errs <- err
			}()
		}

		require.Eventually(t, func() bool {
			return client.refresh.inFlight() && client.refresh.pending() == n-1
		}, 2*time.Second, 5*time.Millisecond)
		close(api.refreshGate)

		for range n {
			require.NoError(t, <-errs)
		}
		assert.EqualValues(t, 1, api.refreshes.Load())
		for i := range n {
			assert.Equal(t, 2, api.hit("GET /api/v1/posts/feed?n="+strconv.Itoa(i)), "request %d", i)
		}
		assert.False(t, client.refresh.inFlight())
		assert.Zero(t, client.refresh.pending())
		assert.Zero(t, rec.calls.Load())
	})

	t.Run("login and register never refresh", func(t *testing.T) {
		api := newSessionAPI()
		client, rec := newTestClient(t, api)

		for _, path := range []string{"/auth/login", "/auth/register", "/auth/register/"} {
			_, err := client.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: map[string]string{"email": "a@b.c"}})
			assert.ErrorIs(t, err, ErrInvalidCredentials, path)
			assert.NotErrorIs(t, err, ErrSessionExpired)
			assert.Contains(t, err.Error(), "Incorrect email or password")
		}
		assert.Zero(t, api.refreshes.Load())
		assert.Zero(t, rec.calls.Load())
	})

	t.Run("retry rejected again expires the session", func(t *testing.T) {
		api := newSessionAPI()
		api.alwaysReject = true
		client, rec := newTestClient(t, api)

		_, err := client.Do(ctx, feedRequest(0))
		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.EqualValues(t, 1, api.refreshes.Load())
		assert.Equal(t, 2, api.hit("GET /api/v1/posts/feed?n=0"))
		assert.EqualValues(t, 1, rec.calls.Load())
	})

	t.Run("rejected retries of one refresh redirect once", func(t *testing.T) {
		api := newSessionAPI()
		api.alwaysReject = true
		api.refreshGate = make(chan struct{})
		client, rec := newTestClient(t, api)

		const n = 5
		errs := make(chan error, n)
		for i := range n {
			go func() {
				_, err := client.Do(ctx, feedRequest(i))
				errs <- err
			}()
		}
		require.Eventually(t, func() bool { return client.refresh.pending() == n-1 }, 2*time.Second, 5*time.Millisecond)
		close(api.refreshGate)

		for range n {
			assert.ErrorIs(t, <-errs, ErrSessionExpired)
		}
		assert.EqualValues(t, 1, api.refreshes.Load())
		assert.EqualValues(t, 1, rec.calls.Load())
	})

	t.Run("failed refresh rejects every waiter and redirects once", func(t *testing.T) {
		api := newSessionAPI()
		api.refreshStatus = http.StatusUnauthorized
		api.refreshGate = make(chan struct{})
		client, rec := newTestClient(t, api)

		const n = 6
		errs := make(chan error, n)
		for i := range n {
			go func() {
				_, err := client.Do(ctx, feedRequest(i))
				errs <- err
			}()
		}
		require.Eventually(t, func() bool { return client.refresh.pending() == n-1 }, 2*time.Second, 5*time.Millisecond)
		close(api.refreshGate)

		for range n {
			err := <-errs
			assert.ErrorIs(t, err, ErrSessionExpired)
			var apiErr *APIError
			if assert.ErrorAs(t, err, &apiErr) {
				assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
			}
		}
		assert.EqualValues(t, 1, api.refreshes.Load())
		assert.EqualValues(t, 1, rec.calls.Load())
		for i := range n {
			assert.Equal(t, 1, api.hit("GET /api/v1/posts/feed?n="+strconv.Itoa(i)), "request %d must not retry", i)
		}

		_, err := client.Do(ctx, feedRequest(99))
		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.EqualValues(t, 2, api.refreshes.Load())
		assert.EqualValues(t, 2, rec.calls.Load(), "a later failure is a new cluster")
	})

	t.Run("cancelled waiter leaves the queue", func(t *testing.T) {
		api := newSessionAPI()
		api.refreshGate = make(chan struct{})
		client, _ := newTestClient(t, api)

		leader := make(chan error, 1)
		go func() {
			_, err := client.Do(ctx, feedRequest(0))
			leader <- err
		}()
		require.Eventually(t, client.refresh.inFlight, 2*time.Second, 5*time.Millisecond)

		waitCtx, cancel := context.WithCancel(ctx)
		waiter := make(chan error, 1)
		go func() {
			_, err := client.Do(waitCtx, feedRequest(1))
			waiter <- err
		}()
		require.Eventually(t, func() bool { return client.refresh.pending() == 1 }, 2*time.Second, 5*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-waiter, context.Canceled)

		close(api.refreshGate)
		require.NoError(t, <-leader)
		assert.Equal(t, 1, api.hit("GET /api/v1/posts/feed?n=1"))
	})

	t.Run("refresh failure from transport", func(t *testing.T) {
		var calls atomic.Int32
		client, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.URL.Path == apiPrefix+"/auth/refresh" {
				hj, ok := w.(http.Hijacker)
				require.True(t, ok)
				conn, _, err := hj.Hijack()
				require.NoError(t, err)
				conn.Close()
				return
			}
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		}))

		_, err := client.Do(ctx, feedRequest(0))
		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.ErrorIs(t, err, ErrNetworkFailure)
		assert.EqualValues(t, 1, rec.calls.Load())

		assert.True(t, errors.Is(rec.lastErr(), ErrSessionExpired))
	})
}

func TestRefreshCoordinator(t *testing.T) {
	t.Run("first caller leads and later callers wait", func(t *testing.T) {
		rc := &refreshCoordinator{}

		leader, gen, wait := rc.join()
		assert.True(t, leader)
		assert.EqualValues(t, 1, gen)
		assert.Nil(t, wait)

		var waits []<-chan refreshResult
		for range 3 {
			isLeader, g, ch := rc.join()
			assert.False(t, isLeader)
			assert.Equal(t, gen, g)
			waits = append(waits, ch)
		}
		assert.Equal(t, 3, rc.pending())

		boom := errors.New("boom")
		rc.settle(boom)
		for _, ch := range waits {
			res := <-ch
			assert.ErrorIs(t, res.err, boom)
		}
		assert.False(t, rc.inFlight())
		assert.Zero(t, rc.pending())

		leader, gen, _ = rc.join()
		assert.True(t, leader)
		assert.EqualValues(t, 2, gen)
		rc.settle(nil)
	})

	t.Run("expiry is reported once per generation", func(t *testing.T) {
		rc := &refreshCoordinator{}
		assert.False(t, rc.report(0))
		assert.True(t, rc.report(1))
		assert.False(t, rc.report(1))
		assert.True(t, rc.report(3))
		assert.False(t, rc.report(2))
	})
}
