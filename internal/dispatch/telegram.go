package dispatch

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"hooknotify/pkg/logx"
)

// remoteTimeout bounds one Telegram send, including the rate-limiter wait.
const remoteTimeout = 5 * time.Second

// remoteHeader is the fixed wrapper label prepended to every remote message.
const remoteHeader = "<b>Coding Agent</b>"

type TelegramConfig struct {
	Enabled    bool
	Token      string
	ChatID     string
	GroupID    string // takes precedence over ChatID when both are set
	RatePerSec int
}

// Telegram is a send-only remote channel over the Telegram Bot API.
type Telegram struct {
	bot     *tele.Bot
	target  tele.ChatID
	limiter *rate.Limiter
	log     logx.Logger
}

var errNoTarget = errors.New("no telegram chat_id or group_id configured")

// NewTelegram builds the remote channel. Missing token or chat target is a
// configuration absence, not an error: callers should fall back to
// NoopRemote (see Resolve).
func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	target, err := ResolveTarget(cfg)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// Offline skips the getMe probe: this client only ever sends, and a
	// one-shot invocation should not pay an extra round-trip at startup.
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
		Client:  &http.Client{Timeout: remoteTimeout},
	})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	return &Telegram{
		bot:     bot,
		target:  target,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log.With(logx.String("channel", "telegram")),
	}, nil
}

// ResolveTarget picks the chat target: group id wins over chat id.
func ResolveTarget(cfg TelegramConfig) (tele.ChatID, error) {
	raw := strings.TrimSpace(cfg.GroupID)
	if raw == "" {
		raw = strings.TrimSpace(cfg.ChatID)
	}
	if raw == "" {
		return 0, errNoTarget
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("telegram chat target is not a numeric id: " + raw)
	}
	return tele.ChatID(id), nil
}

// Resolve returns a ready RemoteChannel: a Telegram channel when the config
// is complete, NoopRemote when the channel is disabled or unconfigured.
// Only a malformed target is surfaced as a warning; plain absence is silent.
func Resolve(cfg TelegramConfig, log logx.Logger) RemoteChannel {
	if !cfg.Enabled || strings.TrimSpace(cfg.Token) == "" {
		return NoopRemote{}
	}
	tg, err := NewTelegram(cfg, log)
	if err != nil {
		if !errors.Is(err, errNoTarget) {
			log.Warn("telegram channel disabled", logx.Err(err))
		}
		return NoopRemote{}
	}
	return tg
}

// Dispatch sends the message from an untracked goroutine. The caller gets
// no handle and no error; success and failure are logged only.
func (t *Telegram) Dispatch(message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()

		if err := t.limiter.Wait(ctx); err != nil {
			t.log.Debug("rate limit wait aborted", logx.Err(err))
			return
		}

		text := remoteHeader + "\n" + message
		_, err := t.bot.Send(t.target, text, &tele.SendOptions{ParseMode: tele.ModeHTML})
		if err != nil {
			t.log.Warn("remote send failed", logx.Err(err))
			return
		}
		t.log.Info("remote sent", logx.String("message", truncateForLog(message)))
	}()
}

func truncateForLog(s string) string {
	const n = 60
	if len(s) <= n {
		return s
	}
	return s[:n]
}
