package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"newavalon/config"
	"newavalon/crypto"
	"newavalon/decks"
	"newavalon/game"
	"newavalon/logger"
	"newavalon/migrations"
	"newavalon/storage"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.Debug, cfg.LogLevel)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := decks.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load deck catalog")
	}
	tokenManager := crypto.NewJWTManager(cfg.JWTKey, cfg.TokenMaxAge)

	// the action log is optional
	var recorder game.ActionRecorder = game.NewDiscardActions()
	var pgRepo *storage.PostgresRepo
	logCtx, stopLog := context.WithCancel(context.Background())
	logDone := make(chan struct{})
	if cfg.PostgresURL != "" {
		if err := migrations.Migrate(cfg.PostgresURL); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		pgRepo, err = storage.NewPostgresRepo(context.Background(), cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		actionLog := game.NewActionLog(pgRepo, cfg.ActionQueue)
		recorder = actionLog
		go func() {
			actionLog.Run(logCtx)
			close(logDone)
		}()
	} else {
		close(logDone)
	}

	idGen := game.NewIdGen()
	tickerGen := game.NewTickerGen()
	wg := sync.WaitGroup{}
	roomFactory := game.NewRoomFactory(cfg.Room, game.RoomDeps{
		Tokens:   tokenManager,
		Decks:    catalog,
		Recorder: recorder,
	})
	lobby := game.NewLobby(roomFactory, tickerGen, &wg)

	lobbyStarted := make(chan struct{})
	go lobby.LobbyActor(lobbyStarted)
	<-lobbyStarted

	r := CreateServer(cfg.AllowedOrigins)
	if cfg.Debug {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	gameHandler := game.NewGameHandler(lobby, &idGen, rate.Limit(cfg.RateLimit), cfg.RateBurst)
	r.GET("/ws", gameHandler.WebsocketHandler)
	r.GET("/sessions", gameHandler.PublicSessionsHandler)
	if pgRepo != nil {
		r.GET("/sessions/:id/actions", game.SessionActionsHandler(pgRepo))
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	log.Info().Str("addr", cfg.Addr).Msg("server started")
	<-sigCh
	log.Info().Msg("SIGTERM or SIGINT received, closing sessions before shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	lobby.Shutdown(ctx)
	wg.Wait()
	tickerGen.Stop()

	stopLog()
	<-logDone
	if pgRepo != nil {
		pgRepo.Close()
	}
	log.Info().Msg("shutting down now")
}
