package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livechat/internal/auth"
	"github.com/vovakirdan/livechat/internal/config"
	"github.com/vovakirdan/livechat/internal/core"
	"github.com/vovakirdan/livechat/internal/metrics"
	"github.com/vovakirdan/livechat/internal/proto"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Protocol       int    `json:"protocol"`
	TokensRequired bool   `json:"tokens_required"`
}

// NewServer builds the relay HTTP server: /health, /metrics and /ws.
// gatherer may be nil, in which case /metrics is not exposed.
// /ws sits on the ServeMux next to the gin router so the upgrade gets the
// raw ResponseWriter.
func NewServer(
	hub *core.Hub,
	authService *auth.Service,
	relayMetrics *metrics.Relay,
	gatherer prometheus.Gatherer,
	cfg *config.RelayConfig,
	logger *zerolog.Logger,
) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:         "ok",
			Protocol:       proto.ProtocolVersion,
			TokensRequired: authService.TokensRequired(),
		})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	ws := NewWSHandler(hub, authService, relayMetrics, cfg.RateLimit, logger)
	mux := http.NewServeMux()
	mux.Handle("/ws", BearerMiddleware(authService, logger)(ws))
	mux.Handle("/", router)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
