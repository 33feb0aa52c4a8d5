package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sabbir421/whatsapp-message-server/internal/api/handlers"
	"github.com/sabbir421/whatsapp-message-server/internal/api/middleware"
	"github.com/sabbir421/whatsapp-message-server/internal/blast"
	"github.com/sabbir421/whatsapp-message-server/internal/config"
	"github.com/sabbir421/whatsapp-message-server/internal/metrics"
	"github.com/sabbir421/whatsapp-message-server/internal/qrterm"
	"github.com/sabbir421/whatsapp-message-server/internal/session"
	"github.com/sabbir421/whatsapp-message-server/internal/version"
	"github.com/sabbir421/whatsapp-message-server/internal/websocket"
	"github.com/sabbir421/whatsapp-message-server/internal/whatsapp"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// A .env file is a local-dev convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	log.Info().Str("version", version.Full()).Msg("whatsapp message server starting")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	log.Info().Str("store", cfg.SessionStorePath).Msg("opening whatsapp device store")
	gateway, err := whatsapp.NewGateway(ctx, cfg.SessionStorePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open whatsapp device store")
	}
	defer gateway.Close()

	// The Socket.IO server doubles as the session manager's event sink;
	// AttachSessions closes the loop for QR replays to late joiners.
	sock := websocket.NewSocketIOServer(cfg.AllowedOrigin, m, log)
	defer sock.Close()

	var sink session.Sink = sock
	if cfg.QRTerminal {
		sink = session.Sinks(sock, qrterm.NewPrinter(os.Stdout, log))
	}

	sessions := session.NewManager(gateway, sink, log)
	sessions.OnStateChange = func(s session.State) { m.SetSessionState(int(s)) }
	sessions.Start(ctx)
	sock.AttachSessions(sessions)

	runner := blast.NewRunner(sessions, cfg.SendDelay, m, log)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{cfg.AllowedOrigin},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"*"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	messagesHandler := handlers.NewMessagesHandler(runner, cfg.MaxUploadBytes(), log)
	linkHandler := handlers.NewLinkHandler(sessions, sock, log)

	router.POST("/send-messages", messagesHandler.PostSendMessages)
	router.GET("/link-device", linkHandler.GetLinkDevice)
	router.GET("/status", linkHandler.GetStatus)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.Any("/socket.io", sock.HandleSocketIO())
	router.Any("/socket.io/*any", sock.HandleSocketIO())

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// send-messages replies only after the whole paced run, which
		// takes minutes for a big sheet, so no write deadline.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debug().Err(err).Msg("sd_notify ready")
	} else if sent {
		log.Debug().Msg("systemd notified: ready")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
	}
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("session manager shutdown")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stdout
	if cfg.Debug {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02T15:04:05.000Z07:00"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
