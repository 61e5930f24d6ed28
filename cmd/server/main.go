package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/skvora/clothes-shop/internal/checkout"
	"github.com/skvora/clothes-shop/internal/config"
	"github.com/skvora/clothes-shop/internal/es"
	"github.com/skvora/clothes-shop/internal/handlers"
	"github.com/skvora/clothes-shop/internal/handlers/cart"
	"github.com/skvora/clothes-shop/internal/logging"
	"github.com/skvora/clothes-shop/internal/mykafka"
	"github.com/skvora/clothes-shop/internal/notify"
	httpserver "github.com/skvora/clothes-shop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	engine := &checkout.Engine{
		DB:       db,
		Notifier: &notify.KafkaNotifier{Producer: prod},
		Log:      logger,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		DB:              db,
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: prod, ES: esClient, Index: "product"},
		CartHandler:     &cart.CartHandler{DB: db, Producer: prod, JWTSecret: jwtSecret},
		WishlistHandler: &handlers.WishlistHandler{DB: db, Producer: prod, JWTSecret: jwtSecret},
		OrderHandler:    &handlers.OrderHandler{DB: db, Engine: engine, JWTSecret: jwtSecret},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: "product"},
		JWTSecret:       jwtSecret,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()
	logger.Info("server started", "addr", configuration.HTTP_ADDR)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "err", err)
		}
	}

	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "err", err)
	}

	logger.Info("shutdown complete")
}
