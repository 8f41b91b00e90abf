package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"LeadDesk/entity"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ConversationsProc(ctx context.Context, sender string) ([]entity.Conversation, error) {
	args := m.Called(ctx, sender)
	return args.Get(0).([]entity.Conversation), args.Error(1)
}

func (m *MockStore) MessageHeads(ctx context.Context, sender string) ([]entity.MessageHead, error) {
	args := m.Called(ctx, sender)
	return args.Get(0).([]entity.MessageHead), args.Error(1)
}

func (m *MockStore) LeadsByPhone(ctx context.Context, phoneIDs []string) ([]entity.Lead, error) {
	args := m.Called(ctx, phoneIDs)
	return args.Get(0).([]entity.Lead), args.Error(1)
}

func (m *MockStore) MessagesProc(ctx context.Context, sessionID, sender string) ([]entity.ChatMessage, error) {
	args := m.Called(ctx, sessionID, sender)
	return args.Get(0).([]entity.ChatMessage), args.Error(1)
}

func (m *MockStore) MessagesDirect(ctx context.Context, sessionID, sender string) ([]entity.ChatMessage, error) {
	args := m.Called(ctx, sessionID, sender)
	return args.Get(0).([]entity.ChatMessage), args.Error(1)
}

func (m *MockStore) AppendMessage(ctx context.Context, msg entity.NewMessage) (entity.ChatMessage, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(entity.ChatMessage), args.Error(1)
}

func (m *MockStore) SourcesProc(ctx context.Context) ([]entity.Source, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Source), args.Error(1)
}

func (m *MockStore) SourcesDirect(ctx context.Context) ([]entity.Source, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Source), args.Error(1)
}

func (m *MockStore) StatsProc(ctx context.Context) (*entity.GeneralStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(*entity.GeneralStats), args.Error(1)
}

func (m *MockStore) StatsDirect(ctx context.Context) (*entity.GeneralStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(*entity.GeneralStats), args.Error(1)
}

func (m *MockStore) SetAIEnabledProc(ctx context.Context, sessionID string, enabled bool) error {
	return m.Called(ctx, sessionID, enabled).Error(0)
}

func (m *MockStore) SetAIEnabledDirect(ctx context.Context, sessionID string, enabled bool) error {
	return m.Called(ctx, sessionID, enabled).Error(0)
}

func (m *MockStore) LeadStatus(ctx context.Context, sessionID string) (entity.LeadStatus, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(entity.LeadStatus), args.Error(1)
}

func (m *MockStore) SetLeadStatus(ctx context.Context, sessionID string, from, to entity.LeadStatus) error {
	return m.Called(ctx, sessionID, from, to).Error(0)
}

var (
	errNoProc     = &pgconn.PgError{Code: "42883", Message: "function does not exist"}
	errPermission = &pgconn.PgError{Code: "42501", Message: "permission denied"}
)

func newTestService(store Store) *Service {
	return NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func boolPtr(b bool) *bool { return &b }

func TestListConversationsUsesProcedure(t *testing.T) {
	store := new(MockStore)
	store.On("ConversationsProc", mock.Anything, "instagram").Return([]entity.Conversation{
		{SessionID: "a", LastMessageDate: at(9, 0)},
		{SessionID: "b", LastMessageDate: at(11, 0)},
	}, nil)

	got, err := newTestService(store).ListConversations(context.Background(), "instagram")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].SessionID)
	store.AssertNotCalled(t, "MessageHeads", mock.Anything, mock.Anything)
}

func TestListConversationsFallback(t *testing.T) {
	store := new(MockStore)
	heads := []entity.MessageHead{
		{SessionID: "5511000000001", Sender: "whatsapp", CreatedAt: at(10, 30)},
		{SessionID: "5511000000002", Sender: "whatsapp", CreatedAt: at(10, 20)},
		{SessionID: "5511000000001", Sender: "whatsapp", CreatedAt: at(10, 0)},
		{SessionID: "5511000000003", Sender: "whatsapp", CreatedAt: at(9, 0)},
		{SessionID: "5511000000002", Sender: "whatsapp", CreatedAt: at(8, 0)},
	}
	store.On("ConversationsProc", mock.Anything, "").Return([]entity.Conversation(nil), errNoProc)
	store.On("MessageHeads", mock.Anything, "").Return(heads, nil)
	store.On("LeadsByPhone", mock.Anything, []string{"5511000000001", "5511000000002", "5511000000003"}).
		Return([]entity.Lead{
			{PhoneID: "5511000000002", Name: "Marina", IsAIEnabled: boolPtr(false), Status: entity.StatusQualified, InstanceName: "manychat"},
		}, nil)

	got, err := newTestService(store).ListConversations(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "5511000000001", got[0].SessionID)
	assert.Equal(t, 2, got[0].MessageCount)
	assert.Equal(t, at(10, 30), got[0].LastMessageDate)
	assert.Equal(t, entity.NoNamePlaceholder, got[0].LeadName)
	assert.True(t, got[0].IsAIEnabled)
	assert.Nil(t, got[0].ManychatID)

	assert.Equal(t, "Marina", got[1].LeadName)
	assert.False(t, got[1].IsAIEnabled)
	assert.Equal(t, entity.StatusQualified, got[1].Status)
	assert.Equal(t, "manychat", got[1].InstanceName)
	assert.Equal(t, 2, got[1].MessageCount)

	assert.Equal(t, "5511000000003", got[2].SessionID)
	store.AssertExpectations(t)
}

func TestListConversationsFallbackCardinality(t *testing.T) {
	heads := []entity.MessageHead{
		{SessionID: "c", CreatedAt: at(8, 0)},
		{SessionID: "a", CreatedAt: at(9, 0)},
		{SessionID: "b", CreatedAt: at(9, 30)},
		{SessionID: "a", CreatedAt: at(12, 0)},
		{SessionID: "c", CreatedAt: at(7, 0)},
	}
	distinct := map[string]bool{}
	for _, h := range heads {
		distinct[h.SessionID] = true
	}

	grouped := GroupHeads(heads)
	assert.Len(t, grouped, len(distinct))
	for i := 1; i < len(grouped); i++ {
		assert.False(t, grouped[i].LastMessageDate.After(grouped[i-1].LastMessageDate))
	}
	assert.Equal(t, "a", grouped[0].SessionID)
	assert.Equal(t, at(12, 0), grouped[0].LastMessageDate)
}

func TestListConversationsGenuineErrorPropagates(t *testing.T) {
	store := new(MockStore)
	store.On("ConversationsProc", mock.Anything, "").Return([]entity.Conversation(nil), errPermission)

	_, err := newTestService(store).ListConversations(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errPermission)
	store.AssertNotCalled(t, "MessageHeads", mock.Anything, mock.Anything)
}

func TestListConversationsFallbackErrorPropagates(t *testing.T) {
	store := new(MockStore)
	boom := errors.New("connection reset")
	store.On("ConversationsProc", mock.Anything, "").Return([]entity.Conversation(nil), errNoProc)
	store.On("MessageHeads", mock.Anything, "").Return([]entity.MessageHead{{SessionID: "a", CreatedAt: at(9, 0)}}, nil)
	store.On("LeadsByPhone", mock.Anything, []string{"a"}).Return([]entity.Lead(nil), boom)

	_, err := newTestService(store).ListConversations(context.Background(), "")
	assert.ErrorIs(t, err, boom)
}

func TestGetMessagesFallbackOrdersAscending(t *testing.T) {
	store := new(MockStore)
	store.On("MessagesProc", mock.Anything, "s1", "").Return([]entity.ChatMessage(nil), errNoProc)
	store.On("MessagesDirect", mock.Anything, "s1", "").Return([]entity.ChatMessage{
		{ID: 3, CreatedAt: at(10, 0)},
		{ID: 1, CreatedAt: at(9, 0)},
		{ID: 2, CreatedAt: at(9, 0)},
	}, nil)

	got, err := newTestService(store).GetMessages(context.Background(), "s1", "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestGetMessagesGenuineErrorPropagates(t *testing.T) {
	store := new(MockStore)
	store.On("MessagesProc", mock.Anything, "s1", "").Return([]entity.ChatMessage(nil), errPermission)

	_, err := newTestService(store).GetMessages(context.Background(), "s1", "")
	assert.ErrorIs(t, err, errPermission)
	store.AssertNotCalled(t, "MessagesDirect", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetAIEnabledFallback(t *testing.T) {
	store := new(MockStore)
	store.On("SetAIEnabledProc", mock.Anything, "s1", false).Return(errNoProc)
	store.On("SetAIEnabledDirect", mock.Anything, "s1", false).Return(nil)

	require.NoError(t, newTestService(store).SetAIEnabled(context.Background(), "s1", false))
	store.AssertExpectations(t)
}

func TestListSourcesFallback(t *testing.T) {
	store := new(MockStore)
	want := []entity.Source{{Sender: "whatsapp", ConversationCount: 4}}
	store.On("SourcesProc", mock.Anything).Return([]entity.Source(nil), errNoProc)
	store.On("SourcesDirect", mock.Anything).Return(want, nil)

	got, err := newTestService(store).ListSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestChangeStatus(t *testing.T) {
	store := new(MockStore)
	store.On("LeadStatus", mock.Anything, "s1").Return(entity.StatusQualified, nil)
	store.On("SetLeadStatus", mock.Anything, "s1", entity.StatusQualified, entity.StatusViewingScheduled).Return(nil)

	next, err := newTestService(store).ChangeStatus(context.Background(), "s1", entity.StatusViewingScheduled)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusViewingScheduled, next)

	_, err = newTestService(store).ChangeStatus(context.Background(), "s1", entity.StatusClosedWon)
	assert.ErrorIs(t, err, entity.ErrIllegalTransition)
}
