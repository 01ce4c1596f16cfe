package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"MultiChat/entity"
	"MultiChat/internal/lib/sl"
)

// Board is what the admin commands read and refresh.
type Board interface {
	BoardColumns() map[entity.ChatStatus][]entity.Chat
	ReloadBoard(ctx context.Context) error
}

// TgBot reports hub activity to the admin chat and answers its commands.
type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	botUsername string
	adminId     int64
	board       Board
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

func (t *TgBot) SetBoard(board Board) {
	t.board = board
}

// Start polls for admin commands until ctx is done.
func (t *TgBot) Start(ctx context.Context) error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Warn("handling update", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	updater := ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("board", t.handleBoard))
	dispatcher.AddHandler(handlers.NewCommand("reload", t.handleReload))

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
	t.log.Info("telegram bot started", slog.String("username", t.botUsername))

	<-ctx.Done()
	return updater.Stop()
}

func (t *TgBot) isAdmin(c *ext.Context) bool {
	return c.EffectiveChat != nil && c.EffectiveChat.Id == t.adminId
}

func (t *TgBot) handleBoard(_ *tgbotapi.Bot, c *ext.Context) error {
	if !t.isAdmin(c) || t.board == nil {
		return nil
	}
	t.plainResponse(t.adminId, BoardSummary(t.board.BoardColumns()))
	return nil
}

func (t *TgBot) handleReload(_ *tgbotapi.Bot, c *ext.Context) error {
	if !t.isAdmin(c) || t.board == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := t.board.ReloadBoard(ctx); err != nil {
		t.plainResponse(t.adminId, "Failed to load chats")
		return err
	}
	t.plainResponse(t.adminId, BoardSummary(t.board.BoardColumns()))
	return nil
}

// SendMessage writes to the admin chat. It is safe on a nil bot.
func (t *TgBot) SendMessage(msg string) {
	if t == nil || t.api == nil {
		return
	}
	t.plainResponse(t.adminId, msg)
}

func (t *TgBot) plainResponse(chatId int64, text string) {
	text = strings.ReplaceAll(text, "**", "*")

	sanitized := sanitize(text)
	if sanitized == "" {
		t.log.With(slog.Int64("id", chatId)).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, sanitized, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

// BoardSummary renders the number of chats per column.
func BoardSummary(cols map[entity.ChatStatus][]entity.Chat) string {
	var b strings.Builder
	b.WriteString("*Board*")
	for _, s := range entity.Statuses {
		fmt.Fprintf(&b, "\n%s: %d", s, len(cols[s]))
	}
	return b.String()
}

// sanitize escapes MarkdownV2 reserved characters, leaving * for bold.
func sanitize(input string) string {
	const reserved = "\\`_{}#+-.!|()[]=>~"

	var b strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reserved, char) {
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
