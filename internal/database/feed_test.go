package repository

import (
	"io"
	"log/slog"
	"testing"

	"LeadDesk/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChangeFeedFanOut(t *testing.T) {
	feed := NewChangeFeed(nil, testLogger())

	first, unsubFirst := feed.Subscribe()
	second, unsubSecond := feed.Subscribe()
	defer unsubSecond()

	msg := entity.ChatMessage{ID: 42, SessionID: "5511988887777"}
	feed.publish(msg)

	assert.Equal(t, msg, <-first)
	assert.Equal(t, msg, <-second)

	unsubFirst()
	unsubFirst()
	_, open := <-first
	assert.False(t, open)
	assert.Equal(t, 1, feed.subscribers())

	feed.publish(entity.ChatMessage{ID: 43, SessionID: "x"})
	assert.Equal(t, int64(43), (<-second).ID)
}

func TestChangeFeedDropsForSlowSubscriber(t *testing.T) {
	feed := NewChangeFeed(nil, testLogger())
	ch, unsub := feed.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBuffer+10; i++ {
		feed.publish(entity.ChatMessage{ID: int64(i + 1), SessionID: "s"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestDecodeNotice(t *testing.T) {
	notice, err := decodeNotice(`{"id": 7, "session_id": "5511"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(7), notice.ID)
	assert.Equal(t, "5511", notice.SessionID)

	_, err = decodeNotice(`{"session_id": "5511"}`)
	assert.Error(t, err)

	_, err = decodeNotice(`not json`)
	assert.Error(t, err)
}
