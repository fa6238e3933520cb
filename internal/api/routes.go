// Package api transports the three query operations of spec §4.F over
// HTTP/JSON, following the teacher's gin-based routing, CORS, and
// bearer-token/rate-limit middleware stack (internal/api/auth.go,
// internal/api/ratelimit.go, with their mechanics unchanged and their
// comments and 429 body adapted), and its websocket Hub pattern
// (now internal/eventhub) for pushing chain-feed events to subscribers.
package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gin-gonic/gin"

	"github.com/rawblock/ordinal-index/internal/chainfeed"
	"github.com/rawblock/ordinal-index/internal/eventhub"
	"github.com/rawblock/ordinal-index/internal/flow"
	"github.com/rawblock/ordinal-index/internal/query"
	"github.com/rawblock/ordinal-index/pkg/ordinal"
)

// APIHandler holds everything the HTTP surface needs to answer
// queries and report status; it performs no mutation of its own.
type APIHandler struct {
	queryEngine *query.Engine
	flowEngine  *flow.Engine
	driver      *chainfeed.Driver
	hub         *eventhub.Hub
}

// SetupRouter wires the gin engine: CORS, the public health/status/
// stream endpoints, and the auth+rate-limited query endpoints.
func SetupRouter(queryEngine *query.Engine, flowEngine *flow.Engine, driver *chainfeed.Driver, hub *eventhub.Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var.
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		queryEngine: queryEngine,
		flowEngine:  flowEngine,
		driver:      driver,
		hub:         hub,
	}

	// ── Public endpoints (no auth) ─────────────────────────────
	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/status", handler.handleStatus)
		pub.GET("/stream", func(c *gin.Context) { hub.Subscribe(c) })
	}

	// ── Protected endpoints (require bearer token if API_AUTH_TOKEN set) ──
	protected := r.Group("/api/v1")
	protected.Use(AuthMiddleware())
	protected.Use(NewRateLimiter(120, 20).Middleware())
	{
		protected.GET("/output/:txid/:vout", handler.handleRangesOf)
		protected.GET("/ordinal/:n/outputs", handler.handleOutputsContaining)
		protected.GET("/ordinal/:n/location", handler.handleCurrentLocationOf)
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode":      h.flowEngine.Mode().String(),
		"tipHeight": h.driver.TipHeight(),
	})
}

func (h *APIHandler) handleRangesOf(c *gin.Context) {
	txid, ok := parseTxid(c.Param("txid"))
	if !ok {
		writeQueryError(c, query.ErrBadTxid)
		return
	}
	vout, err := strconv.ParseInt(c.Param("vout"), 10, 64)
	if err != nil {
		writeQueryError(c, query.ErrBadVout)
		return
	}

	result, err := h.queryEngine.RangesOf(c.Request.Context(), txid, vout)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) handleOutputsContaining(c *gin.Context) {
	n, err := parseOrdinal(c.Param("n"))
	if err != nil {
		writeQueryError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	cancelCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(cancelCh)
	}()

	outpoints, err := h.queryEngine.OutputsContaining(ctx, cancelCh, n)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outputs": outpoints})
}

func (h *APIHandler) handleCurrentLocationOf(c *gin.Context) {
	n, err := parseOrdinal(c.Param("n"))
	if err != nil {
		writeQueryError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	cancelCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(cancelCh)
	}()

	outpoint, err := h.queryEngine.CurrentLocationOf(ctx, cancelCh, n)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, outpoint)
}

func parseTxid(s string) ([32]byte, bool) {
	hash, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return [32]byte{}, false
	}
	var out [32]byte
	for i, b := range hash {
		out[31-i] = b
	}
	return out, true
}

func parseOrdinal(s string) (ordinal.Number, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, query.ErrBadVout
	}
	return ordinal.Number(n), nil
}

// writeQueryError maps a query-layer error onto the JSON-RPC error
// numbering described in spec §6: bad argument -8, disabled/missing
// mode -32601, not-found/internal -5.
func writeQueryError(c *gin.Context, err error) {
	switch err {
	case query.ErrBadTxid, query.ErrBadVout:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": -8})
	case query.ErrIndexDisabled, query.ErrModeRequired:
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error(), "code": -32601})
	case query.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": -5})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": -5})
	}
}
