package realtime

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case b, ok := <-c.Send:
		require.True(t, ok, "channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(b, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.Send:
		t.Fatalf("unexpected event %s", b)
	default:
	}
}

func TestPublishReachesOnlyTheRoom(t *testing.T) {
	hub := NewHub(nil, nil)
	projectA, projectB := uuid.New(), uuid.New()
	alice := hub.Subscribe(projectA, uuid.New())
	bob := hub.Subscribe(projectA, uuid.New())
	carol := hub.Subscribe(projectB, uuid.New())

	msg := models.ChatMessage{ID: uuid.New(), ProjectID: projectA, Body: "hi"}
	hub.Publish(context.Background(), projectA, msg)

	for _, c := range []*Client{alice, bob} {
		ev := recv(t, c)
		assert.Equal(t, EventChatMessage, ev.Type)
		assert.Equal(t, projectA, ev.ProjectID)
		var got models.ChatMessage
		require.NoError(t, json.Unmarshal(ev.Data, &got))
		assert.Equal(t, msg.ID, got.ID)
	}
	assertEmpty(t, carol)
}

func TestNotifyReachesEverySessionOfTheUser(t *testing.T) {
	hub := NewHub(nil, nil)
	user := uuid.New()
	inRoom := hub.Subscribe(uuid.New(), user)
	global := hub.Subscribe(uuid.Nil, user)
	other := hub.Subscribe(uuid.Nil, uuid.New())

	hub.Notify(context.Background(), user, models.Notification{Type: models.NotifyApplicationAccepted, Message: "yay"})

	assert.Equal(t, EventNotification, recv(t, inRoom).Type)
	assert.Equal(t, EventNotification, recv(t, global).Type)
	assertEmpty(t, other)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil, nil)
	project := uuid.New()
	slow := hub.Subscribe(project, uuid.New())

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*2; i++ {
			hub.Publish(context.Background(), project, models.ChatMessage{Body: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, slow.Send, sendBuffer)
}

func TestUnsubscribeClosesAndEmptiesRoom(t *testing.T) {
	hub := NewHub(nil, nil)
	project := uuid.New()
	c := hub.Subscribe(project, uuid.New())
	require.Equal(t, 1, hub.RoomSize(project))

	hub.Unsubscribe(c)
	hub.Unsubscribe(c)

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.RoomSize(project))

	// publishing to an empty room is a no-op
	hub.Publish(context.Background(), project, models.ChatMessage{Body: "late"})
}

func TestRouteParsesChannels(t *testing.T) {
	hub := NewHub(nil, nil)
	project, user := uuid.New(), uuid.New()
	room := hub.Subscribe(project, uuid.New())
	mine := hub.Subscribe(uuid.Nil, user)

	hub.route(chatChannel(project), []byte(`{"type":"chat_message"}`))
	hub.route(notifyChannel(user), []byte(`{"type":"notification"}`))
	hub.route("project:not-a-uuid:chat", []byte(`{}`))

	assert.Equal(t, EventChatMessage, recv(t, room).Type)
	assert.Equal(t, EventNotification, recv(t, mine).Type)
	assertEmpty(t, room)
}

func TestRunWithoutRedisWaitsForContext(t *testing.T) {
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- hub.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRedisFanOut(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := NewRedis(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	defer rdb.Close()

	// two hubs on one Redis stand in for two API instances
	a, b := NewHub(rdb, nil), NewHub(rdb, nil)
	go func() { _ = a.Run(ctx) }()
	go func() { _ = b.Run(ctx) }()
	time.Sleep(200 * time.Millisecond)

	project := uuid.New()
	sub := b.Subscribe(project, uuid.New())
	a.Publish(ctx, project, models.ChatMessage{ProjectID: project, Body: "across"})

	assert.Equal(t, EventChatMessage, recv(t, sub).Type)
}
