package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
)

// StatsSource feeds the /stats command.
type StatsSource interface {
	GeneralStats(ctx context.Context) (*entity.GeneralStats, error)
}

// TgBot delivers operator alerts to the admin chat and answers a few admin
// commands.
type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	botUsername string
	adminId     int64
	stats       StatsSource
}

func NewTgBot(botName, apiKey string, adminId int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		adminId:     adminId,
		botUsername: botName,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) SetStatsSource(stats StatsSource) {
	t.stats = stats
}

// Start polls for updates until the process ends.
func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Warn("handling update", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	updater := ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("stats", t.handleStats))

	err := updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.log.Info("alert bot started", slog.String("username", t.botUsername))
	updater.Idle()

	return nil
}

func (t *TgBot) handleStats(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if chatId != t.adminId {
		t.log.With(slog.Int64("id", chatId)).Debug("stats requested by stranger")
		return nil
	}
	if t.stats == nil {
		t.plainResponse(chatId, "Stats are not available")
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := t.stats.GeneralStats(c)
	if err != nil {
		t.plainResponse(chatId, "Stats failed: "+err.Error())
		return err
	}
	t.plainResponse(chatId, FormatStats(stats))
	return nil
}

// SendMessage sends an alert to the admin chat.
func (t *TgBot) SendMessage(msg string) {
	t.plainResponse(t.adminId, msg)
}

func (t *TgBot) plainResponse(chatId int64, text string) {
	sanitized := Sanitize(text)
	if sanitized == "" {
		t.log.With(slog.Int64("id", chatId)).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, sanitized, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(
			slog.Int64("id", chatId),
		).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(
				slog.Int64("id", chatId),
			).Error("sending plain message", sl.Err(err))
		}
	}
}

func FormatStats(stats *entity.GeneralStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*LeadDesk*\nMessages: %d\nConversations: %d\nSources: %d",
		stats.TotalMessages, stats.TotalConversations, stats.TotalSenders)
	if stats.DateRangeStart != nil && stats.DateRangeEnd != nil {
		fmt.Fprintf(&b, "\nFrom %s to %s",
			stats.DateRangeStart.Format(time.DateOnly), stats.DateRangeEnd.Format(time.DateOnly))
	}
	return b.String()
}

// Sanitize escapes MarkdownV2 reserved characters, leaving * for bold.
func Sanitize(input string) string {
	const reserved = "\\`_{}#+-.!|()[]=>~"

	var b strings.Builder
	b.Grow(len(input))
	for _, char := range input {
		if strings.ContainsRune(reserved, char) {
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
