package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vpn-tool-bot/internal/common/logger"
)

// WebhookPath is registered with Telegram via setWebhook.
const WebhookPath = "/h"

// Webhook receives pushed updates over HTTPS behind a public domain.
type Webhook struct {
	handler UpdateHandler
	port    int
}

func NewWebhook(handler UpdateHandler, port int) *Webhook {
	return &Webhook{handler: handler, port: port}
}

func (w *Webhook) engine() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST(WebhookPath, func(c *gin.Context) {
		var upd Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			logger.Warn().Err(err).Msg("Malformed webhook update")
			c.Status(http.StatusBadRequest)
			return
		}
		// Telegram retries on non-2xx; the handler never fails the
		// delivery, errors are resolved inside the command pipeline.
		w.handler(c.Request.Context(), upd)
		c.Status(http.StatusOK)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "vpn-tool-bot",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return router
}

// Run serves the webhook endpoint until ctx is cancelled, then shuts the
// server down gracefully.
func (w *Webhook) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", w.port),
		Handler:      w.engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", w.port).Str("path", WebhookPath).Msg("Webhook server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down webhook server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
