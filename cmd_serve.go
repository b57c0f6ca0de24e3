package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"secom/cache"
	"secom/config"
	"secom/controllers"
	dbpkg "secom/db"
	"secom/realtime"
	"secom/router"
	"secom/services"
	"secom/tools"
	"secom/workers"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Sobe a API HTTP, o realtime e os jobs agendados",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logFile, err := loadConfig()
			if err != nil {
				return err
			}
			defer logFile.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, conf)
		},
	}
}

func serve(ctx context.Context, conf config.Configuration) error {
	tools.BcryptCost = conf.Security.BcryptCost

	database, err := dbpkg.Connect(conf)
	if err != nil {
		return err
	}
	defer database.Close()

	hub := realtime.NewHub()
	svc := controllers.Services{
		Publisher: hub,
		Hub:       hub,
		Cache:     newCache(ctx, conf),
	}
	if conf.WhatsAppEnabled() {
		svc.Messenger = tools.WhatsAppClient{
			AccessToken:   conf.WhatsApp.AccessToken,
			ApiVersion:    conf.WhatsApp.ApiVersion,
			PhoneNumberID: conf.WhatsApp.PhoneNumberID,
			BaseURL:       conf.WhatsApp.BaseURL,
		}
	} else {
		logrus.Info("whatsapp: canal desabilitado")
	}
	if conf.AIEnabled() {
		svc.AI = tools.NewOpenAIClient(tools.OpenAIConfig{
			ApiKey:         conf.OpenAI.ApiKey,
			BaseURL:        conf.OpenAI.BaseURL,
			Model:          conf.OpenAI.Model,
			EmbeddingModel: conf.OpenAI.EmbeddingModel,
		})
	} else {
		logrus.Info("openai: sugestões de IA desabilitadas")
	}
	svc.Notifier = services.NewNotifier(svc.Publisher, svc.Messenger)
	controllers.Configure(conf, svc)

	if conf.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(dbpkg.SetDBtoContext(database))
	router.Initialize(r, conf)

	srv := &http.Server{
		Addr:              ":" + conf.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return workers.Run(gctx, workers.NewJobs(database, svc.Notifier, conf))
	})
	g.Go(func() error {
		logrus.WithField("port", conf.ApiPort).Info("secom: servidor no ar")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logrus.Info("secom: encerrado")
	return err
}

// newCache usa o Redis quando configurado e acessível; senão, memória local.
func newCache(ctx context.Context, conf config.Configuration) cache.Cache {
	if conf.Redis.Addr == "" {
		return cache.NewMemory()
	}
	r := cache.NewRedis(conf.Redis.Addr, conf.Redis.Password, conf.Redis.DB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		logrus.WithError(err).WithField("addr", conf.Redis.Addr).Warn("cache: redis indisponível, usando memória")
		r.Close()
		return cache.NewMemory()
	}
	logrus.WithField("addr", conf.Redis.Addr).Info("cache: usando redis")
	return r
}
