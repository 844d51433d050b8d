package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anle/alumnet/internal/model"
	"github.com/anle/alumnet/internal/remoteerr"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaxRetries:   2,
	}, StaticToken("test-token"))
}

func TestSelect_DecodesRows(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("id"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		fmt.Fprint(w, `[{"id":"u1","full_name":"Quinn Vo","role":"alumni"}]`)
	}))

	var rows []model.Profile
	err := c.Select(context.Background(), TableProfiles, Where("id", "u1"), &rows)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Quinn Vo", rows[0].FullName)
	assert.Equal(t, model.RoleAlumni, rows[0].Role)
}

func TestDo_RetriesOn429ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[]`)
	}))

	var rows []model.Profile
	err := c.Select(context.Background(), TableProfiles, Params{}, &rows)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_RetryAfterReplacesBackoff(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[]`)
	}))

	start := time.Now()
	err := c.Select(context.Background(), TableProfiles, Params{}, &[]model.Profile{})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	// The server-directed wait is the whole wait; the exponential
	// backoff for that attempt must not be added on top of it.
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 1500*time.Millisecond)
}

func TestDo_ExhaustsRetriesOn500(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message":"db down","code":"XX000"}`)
	}))

	err := c.Select(context.Background(), TableProfiles, Params{}, &[]model.Profile{})

	require.Error(t, err)
	// MaxRetries=2 means at most 3 attempts.
	assert.Equal(t, int32(3), calls.Load())
	n := remoteerr.Normalize(err)
	assert.Equal(t, "db down", n.Message)
	assert.Equal(t, "XX000", n.Code)
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"no such row","code":"PGRST116"}`)
	}))

	err := c.Select(context.Background(), TableProfiles, Where("id", "nope"), &[]model.Profile{})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, remoteerr.IsNotFound(err))
}

func TestInsert_ReturnsCreatedRow(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/messages", r.URL.Path)
		fmt.Fprint(w, `[{"id":"m1","conversation_id":"c1","sender_id":"u1","content":"hi"}]`)
	}))

	var created []model.Message
	err := c.Insert(context.Background(), TableMessages, map[string]string{
		"conversation_id": "c1", "sender_id": "u1", "content": "hi",
	}, &created)

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "m1", created[0].ID)
}

func TestSignIn_BuildsSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u1","email":"a@b.edu"}}`)
	}))

	sess, err := c.SignIn(context.Background(), "a@b.edu", "pw")

	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "a@b.edu", sess.Email)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "rt", sess.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
	assert.False(t, sess.Expired(time.Now()))
}

func TestSignOut_SendsGivenToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.SignOut(context.Background(), "session-token")

	require.NoError(t, err)
	assert.Equal(t, "Bearer session-token", gotAuth)
}

func TestPing_FailsFastOnRefusedConnection(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k", MaxRetries: -1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.Ping(ctx)

	require.Error(t, err)
	assert.True(t, remoteerr.IsNetwork(err) || remoteerr.IsTimeout(err))
}

func TestParams_Encode(t *testing.T) {
	p := Where("status", "pending").
		In("id", []string{"a", "b"}).
		Order("created_at", true).
		Limit(10)

	q := p.Encode()

	assert.Equal(t, "eq.pending", q.Get("status"))
	assert.Equal(t, "in.(a,b)", q.Get("id"))
	assert.Equal(t, "created_at.desc", q.Get("order"))
	assert.Equal(t, "10", q.Get("limit"))
}

func TestParams_OrEq(t *testing.T) {
	q := Params{}.OrEq("u1", "requester_id", "addressee_id").Encode()

	assert.Equal(t, "(requester_id.eq.u1,addressee_id.eq.u1)", q.Get("or"))
}

func TestParams_EmptyInMatchesNothing(t *testing.T) {
	assert.True(t, Params{}.In("id", nil).Empty())
	assert.False(t, Params{}.In("id", []string{"a"}).Empty())
	assert.False(t, Params{}.Empty())
}

func TestUpload_ReturnsObjectPath(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/avatars/u1/avatar.png", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("x-upsert"))
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"Key":"avatars/u1/avatar.png"}`)
	}))

	path, err := c.Upload(context.Background(), AvatarBucket, "u1/avatar.png",
		strings.NewReader("png-bytes"), "image/png")

	require.NoError(t, err)
	// The return value is what a record's storage-path column holds,
	// not a display URL.
	assert.Equal(t, "u1/avatar.png", path)
}

func TestPublicURL(t *testing.T) {
	c := New(Config{BaseURL: "https://proj.example.co/"}, nil)

	url := c.PublicURL(AvatarBucket, "u1/avatar.png")

	assert.Equal(t, "https://proj.example.co/storage/v1/object/public/avatars/u1/avatar.png", url)
}
