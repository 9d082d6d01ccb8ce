package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/giftcard/pkg/giftcard"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run boots the HTTP API using the supplied configuration and service.
// The now function must be the same clock the service runs on so that
// statuses rendered in responses agree with service decisions.
func Run(ctx context.Context, cfg Config, service *giftcard.Service, now func() int64, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if now == nil {
		now = func() int64 { return time.Now().UTC().Unix() }
	}
	handler := &httpHandler{
		logger:  logger,
		service: service,
		nowFn:   now,
	}
	router := setupRouter(cfg, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("giftcard api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(authMiddleware(cfg.SigningKey))

	api.POST("/cards", handler.handleCreate)
	api.GET("/cards", handler.handleList)
	api.GET("/cards/:id", handler.handleGet)
	api.GET("/cards/:id/transactions", handler.handleTransactions)
	api.POST("/cards/:id/apply", handler.handleApply)
	api.POST("/cards/:id/debit", handler.handleDebit)
	api.DELETE("/cards/:id", handler.handleSoftDelete)
	api.POST("/cards/:id/restore", handler.handleRestore)
	api.POST("/cards/:id/transfer", handler.handleTransfer)
	api.POST("/redemptions/apply", handler.handleApplyCode)
	api.GET("/sortable-attributes", handler.handleSortableAttributes)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service *giftcard.Service
	nowFn   func() int64
}
