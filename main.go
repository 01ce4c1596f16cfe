package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"MultiChat/bot"
	"MultiChat/impl/core"
	"MultiChat/internal/board"
	"MultiChat/internal/config"
	"MultiChat/internal/http-server/api"
	"MultiChat/internal/hubapi"
	"MultiChat/internal/lib/logger"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/metrics"
	"MultiChat/internal/notify"
	"MultiChat/internal/realtime"
	"MultiChat/internal/session"
	"MultiChat/internal/ws"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
			tgBot = nil
		} else {
			lg = logger.SetupTelegramHandler(lg, tgBot, slog.LevelError)
			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
			).Info("telegram bot initialized")
		}
	}

	lg.Info("starting multichat console", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	m := metrics.New()

	sess, err := session.New(session.NewFileStore(conf.Session.Path), lg)
	if err != nil {
		lg.Error("load session", sl.Err(err))
		return
	}

	client := hubapi.New(conf.Api.BaseURL, conf.Api.Timeout, sess, lg,
		hubapi.WithMetrics(m),
		hubapi.WithWidgetCDN(conf.Widget.CdnURL),
	)
	lg.With(
		slog.String("url", conf.Api.BaseURL),
		slog.Bool("session", sess.Authenticated()),
	).Info("hub client initialized")

	hub := ws.NewHub(m, lg)
	go hub.Run(ctx)

	dispatcher := notify.NewDispatcher(conf.Notify.Sound, m, lg,
		notify.LogSink{Log: lg.With(sl.Module("toast"))},
		notify.HubSink{Hub: hub},
	)
	if tgBot != nil {
		dispatcher.AddSink(notify.TelegramSink{
			Sender:   tgBot,
			Presence: hub,
			Limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(max(conf.Telegram.ToastsPerMinute, 1))), 5),
		})
	}

	handler := core.New(lg)
	handler.SetAuthKey(conf.Listen.ApiKey)
	handler.SetHubAPI(client)
	handler.SetSession(sess)
	handler.SetBoard(board.New(client, conf.Board.PageSize, m, lg))
	handler.SetNotifier(dispatcher)
	handler.SetBroadcaster(hub)
	handler.SetCredentials(core.Credentials{
		Email:    conf.Session.Email,
		Password: conf.Session.Password,
	})
	handler.SetRealtime(realtime.Options{
		RetryDelay: conf.Realtime.ReconnectDelay,
		Buffer:     conf.Realtime.Buffer,
		Metrics:    m,
	})
	if conf.Heartbeat.Enabled {
		handler.SetHeartbeat(conf.Heartbeat.Interval)
	}
	hub.SetHandler(handler)
	sess.OnExpired(handler.HandleSessionExpired)

	if err = handler.Start(ctx); err != nil {
		lg.Error("core start", sl.Err(err))
		return
	}

	if tgBot != nil {
		tgBot.SetBoard(handler)
		go func() {
			if err := tgBot.Start(ctx); err != nil {
				lg.Error("telegram bot error", sl.Err(err))
			}
		}()
	}

	if conf.Listen.ApiKey == "" {
		lg.Warn("console key not set, local api rejects every request")
	}

	// *** blocking start with http server ***
	err = api.New(ctx, conf, lg, handler, hub, m)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Info("service stopped")
}
