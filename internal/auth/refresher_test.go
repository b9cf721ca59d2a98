package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joonyo2/yugwan/internal/session"
	"github.com/joonyo2/yugwan/internal/transport"
	"github.com/joonyo2/yugwan/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, req *transport.Request, accessToken string) (*types.Response, error) {
	args := m.Called(ctx, req, accessToken)
	resp, _ := args.Get(0).(*types.Response)
	return resp, args.Error(1)
}

func isRefreshCall(refreshToken string) interface{} {
	return mock.MatchedBy(func(req *transport.Request) bool {
		var body map[string]string
		_ = json.Unmarshal(req.Body, &body)
		return req.Method == http.MethodPost &&
			req.Path == types.RefreshEndpoint &&
			body["refresh"] == refreshToken
	})
}

func seededStore(t *testing.T, access, refresh string) *session.Store {
	t.Helper()
	store := session.NewStore(session.NewMemoryBackend())
	if access != "" {
		require.NoError(t, store.Set(context.Background(), access, refresh))
	}
	return store
}

func TestRefresh_Success(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "A1", "R1")
	sender := new(MockSender)
	sender.On("Send", mock.Anything, isRefreshCall("R1"), "").
		Return(&types.Response{StatusCode: 200, Body: []byte(`{"access":"A2"}`)}, nil).Once()

	var hookCalls int
	refresher := NewRefresher(store, sender, nil, &types.Hooks{
		OnRefresh: func(ctx context.Context, refreshed bool, d time.Duration) {
			hookCalls++
			assert.True(t, refreshed)
		},
	})

	access, ok := refresher.Refresh(ctx, "A1")

	assert.True(t, ok)
	assert.Equal(t, "A2", access)
	sess, _ := store.Get(ctx)
	assert.Equal(t, session.Session{AccessToken: "A2", RefreshToken: "R1"}, sess)
	assert.Equal(t, 1, hookCalls)
	sender.AssertExpectations(t)
}

func TestRefresh_StoresRotatedRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, "A1", "R1")
	sender := new(MockSender)
	sender.On("Send", mock.Anything, isRefreshCall("R1"), "").
		Return(&types.Response{StatusCode: 200, Body: []byte(`{"access":"A2","refresh":"R2"}`)}, nil).Once()

	access, ok := NewRefresher(store, sender, nil, nil).Refresh(ctx, "A1")

	assert.True(t, ok)
	assert.Equal(t, "A2", access)
	sess, _ := store.Get(ctx)
	assert.Equal(t, session.Session{AccessToken: "A2", RefreshToken: "R2"}, sess)
}

func TestRefresh_NoRefreshTokenMakesNoCall(t *testing.T) {
	store := seededStore(t, "A1", "")
	sender := new(MockSender)

	access, ok := NewRefresher(store, sender, nil, nil).Refresh(context.Background(), "A1")

	assert.False(t, ok)
	assert.Empty(t, access)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_Failures(t *testing.T) {
	tests := []struct {
		name string
		resp *types.Response
		err  error
	}{
		{name: "rejected refresh token", resp: &types.Response{StatusCode: 401, Body: []byte(`{"detail":"Token is blacklisted"}`)}},
		{name: "bad request", resp: &types.Response{StatusCode: 400, Body: []byte(`{"refresh":["This field is required."]}`)}},
		{name: "server error", resp: &types.Response{StatusCode: 500, Body: []byte(`<html>`)}},
		{name: "malformed body", resp: &types.Response{StatusCode: 200, Body: []byte(`not json`)}},
		{name: "missing access token", resp: &types.Response{StatusCode: 200, Body: []byte(`{"refresh":"R2"}`)}},
		{name: "network error", err: types.NewNetworkError(errors.New("connection refused"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := seededStore(t, "A1", "R1")
			sender := new(MockSender)
			sender.On("Send", mock.Anything, isRefreshCall("R1"), "").Return(tt.resp, tt.err).Once()

			refreshedValues := []bool{}
			refresher := NewRefresher(store, sender, nil, &types.Hooks{
				OnRefresh: func(ctx context.Context, refreshed bool, d time.Duration) {
					refreshedValues = append(refreshedValues, refreshed)
				},
			})

			access, ok := refresher.Refresh(ctx, "A1")

			assert.False(t, ok)
			assert.Empty(t, access)
			assert.Equal(t, []bool{false}, refreshedValues)

			// the refresher never clears the session itself
			sess, _ := store.Get(ctx)
			assert.Equal(t, session.Session{AccessToken: "A1", RefreshToken: "R1"}, sess)
			sender.AssertExpectations(t)
		})
	}
}

func TestRefresh_AlreadyRenewedSkipsNetwork(t *testing.T) {
	store := seededStore(t, "A2", "R2")
	sender := new(MockSender)

	access, ok := NewRefresher(store, sender, nil, nil).Refresh(context.Background(), "A1")

	assert.True(t, ok)
	assert.Equal(t, "A2", access)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_ConcurrentCallersShareOneRequest(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"access":"A2","refresh":"R2"}`))
	}))
	defer server.Close()

	store := seededStore(t, "A1", "R1")
	refresher := NewRefresher(store, transport.NewHTTPTransport(&transport.Options{BaseURL: server.URL}), nil, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			access, ok := refresher.Refresh(context.Background(), "A1")
			assert.True(t, ok)
			results[i] = access
		}(i)
	}

	// let every caller reach the refresher before the server answers
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, access := range results {
		assert.Equal(t, "A2", access)
	}
	sess, _ := store.Get(context.Background())
	assert.Equal(t, session.Session{AccessToken: "A2", RefreshToken: "R2"}, sess)
}

func TestRefresh_CallerCancellationDoesNotAbortSharedRefresh(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"access":"A2"}`))
	}))
	defer server.Close()

	store := seededStore(t, "A1", "R1")
	refresher := NewRefresher(store, transport.NewHTTPTransport(&transport.Options{BaseURL: server.URL}), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		_, ok := refresher.Refresh(ctx, "A1")
		done <- ok
	}()

	cancel()
	time.Sleep(10 * time.Millisecond)
	close(release)

	assert.True(t, <-done)
	access, _ := store.AccessToken(context.Background())
	assert.Equal(t, "A2", access)
}

// cancelAwareBackend fails once ctx is done, like the SQL and Redis backends
type cancelAwareBackend struct {
	*session.MemoryBackend
}

func (b cancelAwareBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return b.MemoryBackend.Get(ctx, key)
}

func (b cancelAwareBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.MemoryBackend.Set(ctx, key, value)
}

func TestRefresh_CancelledCallerStillRefreshes(t *testing.T) {
	store := session.NewStore(cancelAwareBackend{session.NewMemoryBackend()})
	require.NoError(t, store.Set(context.Background(), "A1", "R1"))

	sender := new(MockSender)
	sender.On("Send", mock.Anything, isRefreshCall("R1"), "").
		Return(&types.Response{StatusCode: 200, Body: []byte(`{"access":"A2"}`)}, nil).Once()
	refresher := NewRefresher(store, sender, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	access, ok := refresher.Refresh(ctx, "A1")

	assert.True(t, ok)
	assert.Equal(t, "A2", access)
	sess, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.Session{AccessToken: "A2", RefreshToken: "R1"}, sess)
	sender.AssertExpectations(t)
}
