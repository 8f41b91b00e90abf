package entity

import (
	"net/http"
	"time"

	"LeadDesk/internal/lib/validate"
)

// ReadReceipt is the stored (conversation, agent) pair; there is at most one per pair.
type ReadReceipt struct {
	SessionID          string    `json:"session_id"`
	SellerID           int64     `json:"seller_id"`
	SellerName         string    `json:"seller_name"`
	LastReadAt         time.Time `json:"last_read_at"`
	ReadCount          int       `json:"read_count"`
	IsCurrentlyViewing bool      `json:"is_currently_viewing"`
}

type ReadStatus struct {
	AgentID            int64     `json:"agent_id"`
	AgentName          string    `json:"agent_name"`
	LastReadAt         time.Time `json:"last_read_at"`
	ReadCount          int       `json:"read_count"`
	IsCurrentlyViewing bool      `json:"is_currently_viewing"`
}

func (r ReadReceipt) Status() ReadStatus {
	return ReadStatus{
		AgentID:            r.SellerID,
		AgentName:          r.SellerName,
		LastReadAt:         r.LastReadAt,
		ReadCount:          r.ReadCount,
		IsCurrentlyViewing: r.IsCurrentlyViewing,
	}
}

type ConversationReadInfo struct {
	SessionID   string       `json:"session_id"`
	ReadBy      []ReadStatus `json:"read_by"`
	UnreadCount int          `json:"unread_count"`
	Unread      bool         `json:"is_unread_for_current_user"`
}

// IsUnread is true when the agent never read the conversation or a message
// arrived strictly after the agent's last read.
func IsUnread(lastMessage time.Time, receipt *ReadStatus) bool {
	return receipt == nil || lastMessage.After(receipt.LastReadAt)
}

// DeriveReadInfo builds the projection for agentID from the readers list,
// always recomputing unread from the conversation's last message time.
func DeriveReadInfo(ref ConversationRef, readBy []ReadStatus, agentID int64) ConversationReadInfo {
	if readBy == nil {
		readBy = []ReadStatus{}
	}
	info := ConversationReadInfo{
		SessionID: ref.SessionID,
		ReadBy:    readBy,
	}
	var own *ReadStatus
	for i := range readBy {
		if readBy[i].AgentID == agentID {
			own = &readBy[i]
			break
		}
	}
	info.Unread = IsUnread(ref.LastMessageDate, own)
	if info.Unread {
		info.UnreadCount = 1
	}
	return info
}

// UnreadDefault is what a conversation shows when its receipts could not be loaded.
func UnreadDefault(sessionID string) ConversationReadInfo {
	return ConversationReadInfo{
		SessionID:   sessionID,
		ReadBy:      []ReadStatus{},
		UnreadCount: 1,
		Unread:      true,
	}
}

// WithReader records a read by the agent this projection belongs to: its
// entry in ReadBy is replaced and the conversation becomes read.
func (i ConversationReadInfo) WithReader(status ReadStatus) ConversationReadInfo {
	readBy := make([]ReadStatus, 0, len(i.ReadBy)+1)
	for _, r := range i.ReadBy {
		if r.AgentID != status.AgentID {
			readBy = append(readBy, r)
		}
	}
	i.ReadBy = append(readBy, status)
	i.Unread = false
	i.UnreadCount = 0
	return i
}

func (i ConversationReadInfo) LatestReader() *ReadStatus {
	var latest *ReadStatus
	for k := range i.ReadBy {
		if latest == nil || i.ReadBy[k].LastReadAt.After(latest.LastReadAt) {
			latest = &i.ReadBy[k]
		}
	}
	return latest
}

type ReadIndicator string

const (
	IndicatorUnread      ReadIndicator = "unread"
	IndicatorReadByYou   ReadIndicator = "read_by_you"
	IndicatorReadByOther ReadIndicator = "read_by_other"
	IndicatorNeverRead   ReadIndicator = "never_read"
)

func (i ConversationReadInfo) Indicator(agentID int64) ReadIndicator {
	latest := i.LatestReader()
	switch {
	case latest == nil:
		return IndicatorNeverRead
	case i.Unread:
		return IndicatorUnread
	case latest.AgentID == agentID:
		return IndicatorReadByYou
	default:
		return IndicatorReadByOther
	}
}

type ReadStatusRequest struct {
	Conversations []ConversationRef `json:"conversations" validate:"required,max=1000,dive"`
}

func (r *ReadStatusRequest) Bind(_ *http.Request) error {
	return validate.Struct(r)
}
