package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/service/chatbot"
	"LeadDesk/internal/service/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct{ mock.Mock }

func (m *MockStore) AppendMessage(ctx context.Context, msg entity.NewMessage) (entity.ChatMessage, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(entity.ChatMessage), args.Error(1)
}

func (m *MockStore) LeadRouting(ctx context.Context, sessionID string) (*entity.LeadRouting, error) {
	args := m.Called(ctx, sessionID)
	routing, _ := args.Get(0).(*entity.LeadRouting)
	return routing, args.Error(1)
}

func (m *MockStore) TouchActivity(ctx context.Context, sessionID string, at time.Time) error {
	return m.Called(ctx, sessionID, at).Error(0)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) SendText(ctx context.Context, number, text string) error {
	return m.Called(ctx, number, text).Error(0)
}

func (m *MockGateway) SendMedia(ctx context.Context, number string, media gateway.Media) error {
	return m.Called(ctx, number, media).Error(0)
}

type MockChatbot struct{ mock.Mock }

func (m *MockChatbot) Handles(instanceName string) bool {
	return instanceName == "manychat"
}

func (m *MockChatbot) SendMessage(ctx context.Context, subscriberID string, subscriber json.RawMessage, text string, imageCount int) error {
	return m.Called(ctx, subscriberID, subscriber, text, imageCount).Error(0)
}

type MockAudit struct{ mock.Mock }

func (m *MockAudit) SaveDispatch(ctx context.Context, record entity.DispatchRecord) error {
	return m.Called(ctx, record).Error(0)
}

type MockFiles struct{ mock.Mock }

func (m *MockFiles) UploadFile(ctx context.Context, filename string, reader io.Reader, meta entity.FileMetadata) (string, int64, error) {
	data, _ := io.ReadAll(reader)
	args := m.Called(ctx, filename, meta)
	return args.String(0), int64(len(data)), args.Error(1)
}

type recordingNotifier struct {
	sessions []string
}

func (n *recordingNotifier) BroadcastActivity(sessionID string, _ time.Time) {
	n.sessions = append(n.sessions, sessionID)
}

const (
	session = "5511999990000"
	pngData = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="
)

var now = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *MockStore
	gateway  *MockGateway
	chatbot  *MockChatbot
	audit    *MockAudit
	notifier *recordingNotifier
	d        *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		store:    new(MockStore),
		gateway:  new(MockGateway),
		chatbot:  new(MockChatbot),
		audit:    new(MockAudit),
		notifier: &recordingNotifier{},
	}
	f.d = New(f.store, f.gateway, f.chatbot, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.d.SetAuditLog(f.audit)
	f.d.SetNotifier(f.notifier)
	f.d.now = func() time.Time { return now }
	return f
}

func (f *fixture) stored(routing *entity.LeadRouting) {
	f.store.On("AppendMessage", mock.Anything, mock.AnythingOfType("entity.NewMessage")).
		Return(entity.ChatMessage{ID: 501, SessionID: session}, nil)
	f.store.On("LeadRouting", mock.Anything, session).Return(routing, nil)
}

func (f *fixture) expectAudit(check func(entity.DispatchRecord) bool) {
	f.audit.On("SaveDispatch", mock.Anything, mock.MatchedBy(check)).Return(nil).Once()
}

func TestSend_GatewayText(t *testing.T) {
	f := newFixture()
	f.stored(&entity.LeadRouting{InstanceName: "sdr_pipiolo"})
	f.gateway.On("SendText", mock.Anything, session, "Bom dia!").Return(nil)
	f.store.On("TouchActivity", mock.Anything, session, now).Return(nil)
	f.expectAudit(func(r entity.DispatchRecord) bool {
		return r.Success && r.Route == entity.RouteGateway && r.MessageID == 501 && r.Agent == "Ana" && r.ID != ""
	})

	res, err := f.d.Send(context.Background(), entity.Outbound{SessionID: session, Text: " Bom dia! ", TempID: "tmp-1"}, "Ana")
	require.NoError(t, err)
	assert.Equal(t, entity.RouteGateway, res.Route)
	assert.False(t, res.ViaFallback)
	assert.Equal(t, "tmp-1", res.TempID)
	assert.Equal(t, int64(501), res.Message.ID)
	assert.Equal(t, []string{session}, f.notifier.sessions)

	f.store.AssertCalled(t, "AppendMessage", mock.Anything, entity.NewMessage{
		SessionID: session,
		Role:      entity.RoleAI,
		Content:   "Bom dia!",
		CreatedAt: now,
	})
	f.gateway.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestSend_GatewayImagesCaptionOnFirst(t *testing.T) {
	f := newFixture()
	f.stored(&entity.LeadRouting{})
	f.gateway.On("SendMedia", mock.Anything, session, gateway.Media{MimeType: "image/png", FileName: "sala.png", Data: pngData, Caption: "Fotos do imóvel"}).Return(nil).Once()
	f.gateway.On("SendMedia", mock.Anything, session, gateway.Media{MimeType: "image/png", FileName: "quarto.png", Data: pngData}).Return(nil).Once()
	f.store.On("TouchActivity", mock.Anything, session, now).Return(nil)
	f.expectAudit(func(r entity.DispatchRecord) bool { return r.Success && r.ImageCount == 2 })

	out := entity.Outbound{
		SessionID: session,
		Text:      "Fotos do imóvel",
		Images: []entity.OutboundImage{
			{FileName: "sala.png", Data: "data:image/png;base64," + pngData},
			{FileName: "quarto.png", MimeType: "image/png", Data: pngData},
		},
	}
	_, err := f.d.Send(context.Background(), out, "Ana")
	require.NoError(t, err)

	f.gateway.AssertExpectations(t)
	f.gateway.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
	stored := f.store.Calls[0].Arguments.Get(1).(entity.NewMessage)
	text, images, ok := entity.DecodeImages(stored.Content)
	require.True(t, ok)
	assert.Equal(t, "Fotos do imóvel", text)
	assert.Len(t, images, 2)
}

func TestSend_ArchivesImagesWithRecord(t *testing.T) {
	f := newFixture()
	files := new(MockFiles)
	f.d.SetFileStore(files)
	f.stored(&entity.LeadRouting{})
	f.gateway.On("SendMedia", mock.Anything, session, mock.Anything).Return(nil)
	f.store.On("TouchActivity", mock.Anything, session, now).Return(nil)

	meta := entity.FileMetadata{MimeType: "image/png", SessionID: session, Agent: "Ana"}
	files.On("UploadFile", mock.Anything, "sala.png", meta).Return("65f0c0ffee0000000000a001", nil).Once()
	files.On("UploadFile", mock.Anything, "quarto.png", meta).Return("", errors.New("mongo down")).Once()
	f.expectAudit(func(r entity.DispatchRecord) bool {
		return r.ImageCount == 2 && len(r.Images) == 1 &&
			r.Images[0].FileID == "65f0c0ffee0000000000a001" && r.Images[0].Size == 70
	})

	out := entity.Outbound{
		SessionID: session,
		Images: []entity.OutboundImage{
			{FileName: "sala.png", Data: pngData},
			{FileName: "quarto.png", Data: pngData},
		},
	}
	_, err := f.d.Send(context.Background(), out, "Ana")
	require.NoError(t, err)

	files.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestSend_ChatbotFallbackToGateway(t *testing.T) {
	f := newFixture()
	f.stored(&entity.LeadRouting{InstanceName: "manychat", ManychatID: "sub-9"})
	f.chatbot.On("SendMessage", mock.Anything, "sub-9", mock.Anything, "Oi", 0).
		Return(&chatbot.WebhookError{Status: http.StatusBadGateway})
	f.gateway.On("SendText", mock.Anything, session, "Oi").Return(nil)
	f.store.On("TouchActivity", mock.Anything, session, now).Return(nil)
	f.expectAudit(func(r entity.DispatchRecord) bool {
		return r.Success && r.Route == entity.RouteChatbot && r.ViaFallback
	})

	res, err := f.d.Send(context.Background(), entity.Outbound{SessionID: session, Text: "Oi"}, "Ana")
	require.NoError(t, err)
	assert.True(t, res.ViaFallback)
	assert.Equal(t, entity.RouteChatbot, res.Route)
	assert.NotEmpty(t, res.TempID)
	assert.Len(t, f.notifier.sessions, 1)
	f.gateway.AssertNumberOfCalls(t, "SendText", 1)
}

func TestSend_ChatbotFallbackFailsSurfacesOriginal(t *testing.T) {
	f := newFixture()
	f.stored(&entity.LeadRouting{InstanceName: "manychat"})
	f.chatbot.On("SendMessage", mock.Anything, "", mock.Anything, "Oi", 0).Return(chatbot.ErrMissingSubscriber)
	f.gateway.On("SendText", mock.Anything, session, "Oi").Return(&gateway.StatusError{Status: 500})
	f.expectAudit(func(r entity.DispatchRecord) bool {
		return !r.Success && r.Category == string(CategoryIntegration)
	})

	_, err := f.d.Send(context.Background(), entity.Outbound{SessionID: session, Text: "Oi"}, "Ana")
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CategoryIntegration, de.Category)
	assert.ErrorIs(t, err, chatbot.ErrMissingSubscriber)
	f.store.AssertNotCalled(t, "TouchActivity", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.notifier.sessions)
}

func TestSend_ChatbotImagesNoFallback(t *testing.T) {
	f := newFixture()
	f.stored(&entity.LeadRouting{InstanceName: "manychat", ManychatID: "sub-9"})
	f.chatbot.On("SendMessage", mock.Anything, "sub-9", mock.Anything, "", 1).Return(chatbot.ErrImagesNotSupported)
	f.expectAudit(func(r entity.DispatchRecord) bool { return !r.Success })

	out := entity.Outbound{SessionID: session, Images: []entity.OutboundImage{{FileName: "a.png", Data: pngData}}}
	_, err := f.d.Send(context.Background(), out, "Ana")
	assert.ErrorIs(t, err, chatbot.ErrImagesNotSupported)
	f.gateway.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "SendMedia", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_RejectsBeforeAnyCall(t *testing.T) {
	six := make([]entity.OutboundImage, 6)
	for i := range six {
		six[i] = entity.OutboundImage{FileName: "p.png", MimeType: "image/png", Data: pngData}
	}
	tests := []struct {
		name     string
		out      entity.Outbound
		category Category
	}{
		{name: "empty", out: entity.Outbound{Text: " "}, category: CategoryValidation},
		{name: "six images", out: entity.Outbound{Images: six}, category: CategoryValidation},
		{name: "pdf", out: entity.Outbound{Images: []entity.OutboundImage{{FileName: "a.pdf", MimeType: "application/pdf", Data: pngData}}}, category: CategoryImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.out.SessionID = session
			_, err := f.d.Send(context.Background(), tt.out, "Ana")
			var de *Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.category, de.Category)
			f.store.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything)
			f.audit.AssertNotCalled(t, "SaveDispatch", mock.Anything, mock.Anything)
		})
	}
}

func TestSend_GatewayStatusError(t *testing.T) {
	f := newFixture()
	f.stored(&entity.LeadRouting{})
	f.gateway.On("SendText", mock.Anything, session, "Oi").Return(&gateway.StatusError{Status: 401, Body: "bad key"})
	f.expectAudit(func(r entity.DispatchRecord) bool { return r.Category == string(CategoryGateway) })

	_, err := f.d.Send(context.Background(), entity.Outbound{SessionID: session, Text: "Oi"}, "Ana")
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CategoryGateway, de.Category)
	assert.NotEmpty(t, de.Message())
	f.store.AssertNotCalled(t, "TouchActivity", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_RoutingFailureUsesGateway(t *testing.T) {
	f := newFixture()
	f.store.On("AppendMessage", mock.Anything, mock.Anything).Return(entity.ChatMessage{ID: 7}, nil)
	f.store.On("LeadRouting", mock.Anything, session).Return(nil, errors.New("timeout"))
	f.gateway.On("SendText", mock.Anything, session, "Oi").Return(nil)
	f.store.On("TouchActivity", mock.Anything, session, now).Return(errors.New("no lead"))
	f.expectAudit(func(r entity.DispatchRecord) bool { return r.Success })

	res, err := f.d.Send(context.Background(), entity.Outbound{SessionID: session, Text: "Oi"}, "Ana")
	require.NoError(t, err)
	assert.Equal(t, entity.RouteGateway, res.Route)
}

func TestSend_StoreFailureStopsDelivery(t *testing.T) {
	f := newFixture()
	f.store.On("AppendMessage", mock.Anything, mock.Anything).Return(entity.ChatMessage{}, errors.New("insert failed"))

	_, err := f.d.Send(context.Background(), entity.Outbound{SessionID: session, Text: "Oi"}, "Ana")
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CategoryGeneric, de.Category)
	f.gateway.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, CategoryNetwork, categorize(context.DeadlineExceeded))
	assert.Equal(t, CategoryGateway, categorize(&gateway.StatusError{Status: 502}))
	assert.Equal(t, CategoryIntegration, categorize(&chatbot.WebhookError{Status: 500}))
	assert.Equal(t, CategoryGeneric, categorize(errors.New("boom")))
}
