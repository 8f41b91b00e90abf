package entity

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// NoNamePlaceholder is shown for conversations without a lead record.
const NoNamePlaceholder = "Sem nome"

type Conversation struct {
	SessionID       string          `json:"session_id"`
	Sender          string          `json:"sender"`
	LastMessageDate time.Time       `json:"last_message_date"`
	MessageCount    int             `json:"message_count"`
	LeadName        string          `json:"lead_name"`
	LeadPhoneID     string          `json:"lead_phone_id"`
	LeadScoring     string          `json:"lead_scoring,omitempty"`
	CrmDealStageID  string          `json:"crm_deal_stage_id,omitempty"`
	IsAIEnabled     bool            `json:"is_ai_enabled"`
	Status          LeadStatus      `json:"lead_conversation_status,omitempty"`
	LastMessageData json.RawMessage `json:"last_message_data,omitempty"`
	InstanceName    string          `json:"instance_name,omitempty"`
	ManychatID      *string         `json:"manychat_id"`
	ManychatData    json.RawMessage `json:"manychat_data,omitempty"`
}

// Lead is the subset of the lead record joined onto a conversation.
type Lead struct {
	PhoneID         string
	Name            string
	Email           string
	LeadScoring     string
	CrmDealStageID  string
	IsAIEnabled     *bool
	Status          LeadStatus
	LastMessageData json.RawMessage
	InstanceName    string
}

// LeadRouting carries what the dispatcher needs to pick a delivery path.
type LeadRouting struct {
	InstanceName string          `json:"instance_name"`
	ManychatID   string          `json:"manychat_id"`
	ManychatData json.RawMessage `json:"manychat_data"`
}

type ScoreRange string

const (
	ScoreCold ScoreRange = "cold"
	ScoreWarm ScoreRange = "warm"
	ScoreHot  ScoreRange = "hot"
)

// ScoreRange buckets the 1..10 lead score; anything else has no range.
func (c *Conversation) ScoreRange() ScoreRange {
	score, err := strconv.Atoi(strings.TrimSpace(c.LeadScoring))
	if err != nil {
		return ""
	}
	switch {
	case score >= 1 && score <= 4:
		return ScoreCold
	case score >= 5 && score <= 7:
		return ScoreWarm
	case score >= 8 && score <= 10:
		return ScoreHot
	default:
		return ""
	}
}

// Matches reports whether the conversation contains q in its lead name,
// phone id or session id, ignoring case.
func (c *Conversation) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.LeadName), q) ||
		strings.Contains(strings.ToLower(c.LeadPhoneID), q) ||
		strings.Contains(strings.ToLower(c.SessionID), q)
}

// ConversationRef identifies a conversation together with the time of its
// newest message, which is all read-status derivation needs.
type ConversationRef struct {
	SessionID       string    `json:"session_id"`
	LastMessageDate time.Time `json:"last_message_date"`
}

func (c *Conversation) Ref() ConversationRef {
	return ConversationRef{SessionID: c.SessionID, LastMessageDate: c.LastMessageDate}
}

type ConversationView struct {
	Conversation
	ScoreRange ScoreRange            `json:"score_range,omitempty"`
	Read       *ConversationReadInfo `json:"read,omitempty"`
	Indicator  ReadIndicator         `json:"read_indicator,omitempty"`
}

type ConversationFilter struct {
	Sender     string
	Query      string
	UnreadOnly bool
	Page       int
	PerPage    int
}

const DefaultPerPage = 10

func (f *ConversationFilter) Normalize() {
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

type ConversationPage struct {
	Items      []ConversationView `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PerPage    int                `json:"per_page"`
	TotalPages int                `json:"total_pages"`
}

// Source is one origin tag with the number of distinct conversations it has.
type Source struct {
	Sender            string `json:"sender"`
	ConversationCount int    `json:"conversation_count"`
}

type GeneralStats struct {
	TotalMessages      int        `json:"total_messages"`
	TotalConversations int        `json:"total_conversations"`
	TotalSenders       int        `json:"total_senders"`
	DateRangeStart     *time.Time `json:"date_range_start"`
	DateRangeEnd       *time.Time `json:"date_range_end"`
}
