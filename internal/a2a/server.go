package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lexmachina/lexmachina-agent/internal/metrics"
	"github.com/lexmachina/lexmachina-agent/internal/ratelimit"
)

const maxRequestBytes = 1 << 20

type ServerConfig struct {
	Host string
	Port int
	// TrustedProxies lists the proxy IPs/CIDRs whose forwarding headers are
	// believed. Empty means the client IP is always the peer address.
	TrustedProxies []string
}

type Server struct {
	server  *http.Server
	handler *Handler
	card    AgentCard
	limiter *ratelimit.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type ServerDeps struct {
	Handler        *Handler
	Card           AgentCard
	Limiter        *ratelimit.Limiter
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

func NewServer(cfg ServerConfig, deps ServerDeps) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		handler: deps.Handler,
		card:    deps.Card,
		limiter: deps.Limiter,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}

	router := gin.New()
	// the rate limiter keys on ClientIP, so forwarding headers count only
	// when they come from a configured proxy
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(deps.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	router.GET("/.well-known/agent-card.json", s.serveCard)
	router.GET("/.well-known/agent.json", s.serveCard)

	rpc := router.Group("/")
	if deps.Limiter != nil {
		rpc.Use(RateLimitMiddleware(deps.Limiter, deps.Metrics))
	}
	rpc.POST("/", s.serveRPC)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info("starting A2A server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping A2A server")
	return s.server.Shutdown(ctx)
}

func (s *Server) serveCard(c *gin.Context) {
	c.JSON(http.StatusOK, s.card)
}

func (s *Server) serveRPC(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBytes))
	if err != nil {
		s.writeError(c, nil, &Error{Code: CodeParseError, Message: "Parse error"})
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(c, nil, &Error{Code: CodeParseError, Message: "Parse error"})
		return
	}
	if req.JSONRPC != jsonrpcVersion || req.Method == "" {
		s.writeError(c, req.ID, &Error{Code: CodeInvalidRequest, Message: "Invalid Request"})
		return
	}

	start := time.Now()
	result, rpcErr := s.dispatch(c.Request.Context(), &req)
	if s.metrics != nil {
		status := "success"
		if rpcErr != nil {
			status = "rpc_error_" + strconv.Itoa(rpcErr.Code)
		}
		s.metrics.RecordRequest(req.Method, status, time.Since(start))
	}

	if rpcErr != nil {
		s.writeError(c, req.ID, rpcErr)
		return
	}
	c.JSON(http.StatusOK, rpcResponse{JSONRPC: jsonrpcVersion, ID: req.ID, Result: result})
}

func (s *Server) dispatch(ctx context.Context, req *rpcRequest) (any, *Error) {
	switch req.Method {
	case MethodSendMessage:
		var params MessageSendParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return wrap(s.handler.SendMessage(ctx, &params))

	case MethodGetTask:
		var params TaskQueryParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return wrap(s.handler.GetTask(ctx, &params))

	case MethodCancelTask:
		var params TaskIDParams
		if err := decodeParams(req.Params, &params); err != nil {
			return nil, err
		}
		return wrap(s.handler.CancelTask(ctx, &params))

	case MethodStreamMessage:
		return nil, NewUnsupportedOperationError("Streaming is not supported by this agent")
	}

	return nil, &Error{Code: CodeMethodNotFound, Message: "Method not found"}
}

func decodeParams(raw json.RawMessage, v any) *Error {
	if len(raw) == 0 {
		return NewInvalidParamsError("params are required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return NewInvalidParamsError("Invalid params")
	}
	return nil
}

func wrap(task *Task, err error) (any, *Error) {
	if err == nil {
		return task, nil
	}
	if rpcErr, ok := err.(*Error); ok {
		return nil, rpcErr
	}
	return nil, newInternalError()
}

func (s *Server) writeError(c *gin.Context, id json.RawMessage, e *Error) {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	c.JSON(http.StatusOK, rpcResponse{JSONRPC: jsonrpcVersion, ID: id, Error: e})
}

func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", statusCode),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}

		switch {
		case statusCode >= 500:
			logger.Error("HTTP request", fields...)
		case statusCode >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}

// RateLimitMiddleware rejects clients, keyed by IP, that exceed the
// limiter's per-minute budget.
func RateLimitMiddleware(limiter *ratelimit.Limiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		if !limiter.Allow(key) {
			if m != nil {
				m.RecordRateLimitHit(c.FullPath())
			}
			retry := int(time.Until(limiter.ResetTime(key)).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": fmt.Sprintf("too many requests, please try again in %d seconds", retry),
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingRequests(key)))
		c.Next()
	}
}
