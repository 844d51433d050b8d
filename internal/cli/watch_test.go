package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anle/alumnet/internal/assemble"
	"github.com/anle/alumnet/internal/backend"
	"github.com/anle/alumnet/internal/health"
	"github.com/anle/alumnet/internal/model"
)

type stubPinger struct{}

func (stubPinger) Ping(ctx context.Context) error { return nil }

// threadReader serves a fixed thread regardless of the filter params;
// watchRefetcher only needs the table routing.
type threadReader struct {
	msgs     []model.Message
	profiles []model.Profile
}

func (r threadReader) Select(ctx context.Context, table string, p backend.Params, dest any) error {
	switch table {
	case backend.TableMessages:
		*dest.(*[]model.Message) = r.msgs
	case backend.TableProfiles:
		*dest.(*[]model.Profile) = r.profiles
	}
	return nil
}

func TestFilterEqValue(t *testing.T) {
	assert.Equal(t, "c1", filterEqValue("conversation_id=eq.c1", "conversation_id"))
	assert.Equal(t, "", filterEqValue("sender_id=eq.u1", "conversation_id"))
	assert.Equal(t, "", filterEqValue("conversation_id=in.(c1,c2)", "conversation_id"))
	assert.Equal(t, "", filterEqValue("", "conversation_id"))
}

func TestWatchRefetcherReprintsThread(t *testing.T) {
	reader := threadReader{
		msgs: []model.Message{
			{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "hello", CreatedAt: time.Now()},
			{ID: "m2", ConversationID: "c1", SenderID: "ghost", Content: "anyone?", CreatedAt: time.Now()},
		},
		profiles: []model.Profile{{ID: "u1", FullName: "An Pham"}},
	}
	app := &App{
		Views:   assemble.New(reader),
		Monitor: health.NewMonitor(stubPinger{}, health.Options{}),
	}

	var buf bytes.Buffer
	refetch := watchRefetcher(app, backend.TableMessages, "conversation_id=eq.c1", &buf)
	require.NotNil(t, refetch)

	refetch(context.Background())

	out := buf.String()
	assert.Contains(t, out, "thread (2 messages)")
	assert.Contains(t, out, "An Pham: hello")
	assert.Contains(t, out, model.UnknownUserName+": anyone?")
}

func TestWatchRefetcherOnlyForConversationStreams(t *testing.T) {
	app := &App{}

	assert.Nil(t, watchRefetcher(app, backend.TableNotifications, "", nil))
	assert.Nil(t, watchRefetcher(app, backend.TableMessages, "", nil))
	assert.Nil(t, watchRefetcher(app, backend.TableMessages, "sender_id=eq.u1", nil))
}
