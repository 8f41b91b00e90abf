package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveReadInfo(t *testing.T) {
	last := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	ref := ConversationRef{SessionID: "5511999990000", LastMessageDate: last}

	tests := []struct {
		name   string
		readBy []ReadStatus
		unread bool
	}{
		{name: "no receipts", readBy: nil, unread: true},
		{name: "only other agent", readBy: []ReadStatus{{AgentID: 2, LastReadAt: last.Add(time.Hour)}}, unread: true},
		{name: "read before last message", readBy: []ReadStatus{{AgentID: 7, LastReadAt: last.Add(-time.Minute)}}, unread: true},
		{name: "read at last message", readBy: []ReadStatus{{AgentID: 7, LastReadAt: last}}, unread: false},
		{name: "read after last message", readBy: []ReadStatus{{AgentID: 7, LastReadAt: last.Add(5 * time.Minute)}}, unread: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DeriveReadInfo(ref, tt.readBy, 7)
			assert.Equal(t, tt.unread, info.Unread)
			assert.NotNil(t, info.ReadBy)
		})
	}
}

func TestReadIndicator(t *testing.T) {
	last := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	ref := ConversationRef{SessionID: "s", LastMessageDate: last}

	assert.Equal(t, IndicatorNeverRead, DeriveReadInfo(ref, nil, 7).Indicator(7))

	other := DeriveReadInfo(ref, []ReadStatus{{AgentID: 2, LastReadAt: last.Add(time.Minute)}}, 7)
	assert.Equal(t, IndicatorUnread, other.Indicator(7))

	mine := other.WithReader(ReadStatus{AgentID: 7, LastReadAt: last.Add(2 * time.Minute)})
	assert.Equal(t, IndicatorReadByYou, mine.Indicator(7))
	assert.Len(t, mine.ReadBy, 2)

	later := DeriveReadInfo(ref, []ReadStatus{
		{AgentID: 7, LastReadAt: last.Add(2 * time.Minute)},
		{AgentID: 2, LastReadAt: last.Add(3 * time.Minute)},
	}, 7)
	assert.Equal(t, IndicatorReadByOther, later.Indicator(7))
}
