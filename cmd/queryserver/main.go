// Command queryserver runs the note query pipeline as an HTTP service,
// using a standard listen/signal/graceful-shutdown entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/omars-lab/knowledge-agents/internal/api"
	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/deps"
	"github.com/omars-lab/knowledge-agents/internal/noteservice"
)

func main() {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})

	settings := config.Load()
	if settings.Debug {
		log.SetFormatter(&logrus.TextFormatter{})
		log.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	dependencies := deps.New(settings)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), settings.VectorSearchTimeout)
	if err := dependencies.VectorStore.EnsureCollection(bootCtx, settings.CollectionName, settings.EmbeddingDim()); err != nil {
		log.WithError(err).Warn("could not ensure vector store collection, continuing anyway")
	}
	cancelBoot()

	service := noteservice.New(dependencies)
	handler := api.NewHandler(service, settings.MaxQueryLength)
	router := api.NewRouter(handler, dependencies.StreamStatus, log)

	addr := fmt.Sprintf(":%s", getEnv("PORT", "8080"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  settings.RequestTimeout,
		WriteTimeout: settings.RequestTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("shutting down queryserver")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("error during shutdown")
		}
		if err := dependencies.DomainWatcher.Close(); err != nil {
			log.WithError(err).Warn("error closing notes-domain description watcher")
		}
	}()

	log.WithField("addr", addr).Info("queryserver listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("queryserver failed")
	}
}

func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}
