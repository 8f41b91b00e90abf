package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"
	"LeadDesk/internal/service/gateway"

	"github.com/google/uuid"
)

type Store interface {
	AppendMessage(ctx context.Context, msg entity.NewMessage) (entity.ChatMessage, error)
	LeadRouting(ctx context.Context, sessionID string) (*entity.LeadRouting, error)
	TouchActivity(ctx context.Context, sessionID string, at time.Time) error
}

type Gateway interface {
	SendText(ctx context.Context, number, text string) error
	SendMedia(ctx context.Context, number string, media gateway.Media) error
}

type Chatbot interface {
	Handles(instanceName string) bool
	SendMessage(ctx context.Context, subscriberID string, subscriber json.RawMessage, text string, imageCount int) error
}

type AuditLog interface {
	SaveDispatch(ctx context.Context, record entity.DispatchRecord) error
}

// FileStore keeps a copy of sent images for the dispatch history.
type FileStore interface {
	UploadFile(ctx context.Context, filename string, reader io.Reader, meta entity.FileMetadata) (string, int64, error)
}

type Notifier interface {
	BroadcastActivity(sessionID string, at time.Time)
}

type Dispatcher struct {
	store    Store
	gateway  Gateway
	chatbot  Chatbot
	audit    AuditLog
	files    FileStore
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
}

func New(store Store, gw Gateway, cb Chatbot, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		gateway: gw,
		chatbot: cb,
		now:     time.Now,
		log:     logger.With(sl.Module("dispatch")),
	}
}

func (d *Dispatcher) SetAuditLog(audit AuditLog) {
	d.audit = audit
}

func (d *Dispatcher) SetFileStore(files FileStore) {
	d.files = files
}

func (d *Dispatcher) SetNotifier(notifier Notifier) {
	d.notifier = notifier
}

// Send validates, stores and delivers an agent reply. The message is stored
// before delivery; a delivery failure leaves it stored and is reported as *Error.
func (d *Dispatcher) Send(ctx context.Context, out entity.Outbound, agent string) (*entity.DispatchResult, error) {
	result := &entity.DispatchResult{TempID: out.TempID, Warnings: out.Warnings}
	if result.TempID == "" {
		result.TempID = uuid.NewString()
	}
	log := d.log.With(
		slog.String("session", out.SessionID),
		slog.String("temp_id", result.TempID),
		slog.Int("images", len(out.Images)),
	)

	if err := out.Validate(); err != nil {
		return nil, wrap(err)
	}

	text := strings.TrimSpace(out.Text)
	content, err := entity.EncodeContent(text, out.Attachments())
	if err != nil {
		return nil, &Error{Category: CategoryImage, Err: err}
	}

	msg, err := d.store.AppendMessage(ctx, entity.NewMessage{
		SessionID: out.SessionID,
		Role:      entity.RoleAI,
		Content:   content,
		Sender:    out.Sender,
		CreatedAt: d.now(),
	})
	if err != nil {
		log.With(sl.Err(err)).Error("store outbound message")
		return nil, &Error{Category: CategoryGeneric, Err: err}
	}
	result.Message = msg

	routing, err := d.store.LeadRouting(ctx, out.SessionID)
	if err != nil {
		log.With(sl.Err(err)).Warn("routing lookup failed, using gateway")
		routing = &entity.LeadRouting{}
	}

	if d.chatbot != nil && d.chatbot.Handles(routing.InstanceName) {
		result.Route = entity.RouteChatbot
		err = d.chatbot.SendMessage(ctx, routing.ManychatID, routing.ManychatData, text, len(out.Images))
		if err != nil {
			sendErr := &Error{Category: CategoryIntegration, Err: err}
			if out.HasImages() {
				d.record(ctx, out, msg.ID, agent, result, sendErr)
				return nil, sendErr
			}
			log.With(sl.Err(err)).Warn("chatbot failed, falling back to gateway")
			if fallbackErr := d.gateway.SendText(ctx, out.SessionID, text); fallbackErr != nil {
				log.With(sl.Err(fallbackErr)).Error("gateway fallback failed")
				d.record(ctx, out, msg.ID, agent, result, sendErr)
				return nil, sendErr
			}
			result.ViaFallback = true
		}
	} else {
		result.Route = entity.RouteGateway
		if err = d.sendGateway(ctx, out, text); err != nil {
			sendErr := wrap(err)
			log.With(sl.Err(err)).Error("gateway send failed")
			d.record(ctx, out, msg.ID, agent, result, sendErr)
			return nil, sendErr
		}
	}

	d.record(ctx, out, msg.ID, agent, result, nil)
	d.touch(ctx, out.SessionID, log)
	return result, nil
}

func (d *Dispatcher) sendGateway(ctx context.Context, out entity.Outbound, text string) error {
	if !out.HasImages() {
		return d.gateway.SendText(ctx, out.SessionID, text)
	}
	for i, img := range out.Images {
		media := gateway.Media{
			MimeType: img.MimeType,
			FileName: img.FileName,
			Data:     img.Data,
		}
		if i == 0 {
			media.Caption = text
		}
		if err := d.gateway.SendMedia(ctx, out.SessionID, media); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) touch(ctx context.Context, sessionID string, log *slog.Logger) {
	at := d.now()
	if err := d.store.TouchActivity(ctx, sessionID, at); err != nil {
		log.With(sl.Err(err)).Warn("update lead activity")
	}
	if d.notifier != nil {
		d.notifier.BroadcastActivity(sessionID, at)
	}
}

func (d *Dispatcher) record(ctx context.Context, out entity.Outbound, messageID int64, agent string, result *entity.DispatchResult, sendErr *Error) {
	if d.audit == nil {
		return
	}
	rec := entity.DispatchRecord{
		ID:          uuid.NewString(),
		SessionID:   out.SessionID,
		MessageID:   messageID,
		Agent:       agent,
		Route:       result.Route,
		ViaFallback: result.ViaFallback,
		ImageCount:  len(out.Images),
		Success:     sendErr == nil,
		CreatedAt:   d.now(),
	}
	if sendErr != nil {
		rec.Category = string(sendErr.Category)
		rec.Error = sendErr.Err.Error()
	}
	rec.Images = d.archive(ctx, out, agent)
	if err := d.audit.SaveDispatch(ctx, rec); err != nil {
		d.log.With(sl.Err(err), slog.String("session", out.SessionID)).Warn("save dispatch record")
	}
}

// archive uploads the sent images; a failed upload is logged and skipped.
func (d *Dispatcher) archive(ctx context.Context, out entity.Outbound, agent string) []entity.ArchivedImage {
	if d.files == nil || !out.HasImages() {
		return nil
	}
	archived := make([]entity.ArchivedImage, 0, len(out.Images))
	for _, img := range out.Images {
		data, err := img.Decode()
		if err != nil {
			continue
		}
		meta := entity.FileMetadata{MimeType: img.MimeType, SessionID: out.SessionID, Agent: agent}
		id, size, err := d.files.UploadFile(ctx, img.FileName, bytes.NewReader(data), meta)
		if err != nil {
			d.log.With(sl.Err(err), slog.String("file", img.FileName)).Warn("archive image")
			continue
		}
		archived = append(archived, entity.ArchivedImage{
			FileID:   id,
			FileName: img.FileName,
			MimeType: img.MimeType,
			Size:     size,
		})
	}
	return archived
}
