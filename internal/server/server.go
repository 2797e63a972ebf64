// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
	"github.com/joseph-ayodele/invoice-scanner/internal/repository"
)

const requestIDHeader = "X-Request-ID"

// DocumentProcessor runs one uploaded document through the pipeline.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, doc entity.Document) (pipeline.Outcome, error)
}

// Exporter renders stored invoices as a workbook.
type Exporter interface {
	InvoicesXLSX(ctx context.Context) ([]byte, error)
}

// HealthFunc reports whether the store is reachable.
type HealthFunc func(ctx context.Context) error

type Server struct {
	e        *gin.Engine
	proc     DocumentProcessor
	invoices repository.InvoiceRepository
	export   Exporter
	health   HealthFunc
	logger   *slog.Logger

	// OnPersisted runs after an upload produced a stored row.
	OnPersisted func()
	// MaxUploadBytes caps the multipart body.
	MaxUploadBytes int64
}

func New(
	proc DocumentProcessor,
	invoices repository.InvoiceRepository,
	export Exporter,
	health HealthFunc,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		e:              gin.New(),
		proc:           proc,
		invoices:       invoices,
		export:         export,
		health:         health,
		logger:         logger,
		MaxUploadBytes: 32 << 20,
	}
	s.initRoutes()
	return s
}

// Handler returns the router, for http.Server or httptest.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) initRoutes() {
	s.e.Use(gin.Recovery())
	s.e.Use(s.requestID())
	s.e.Use(s.accessLog())
	s.e.Use(cors.Default())

	s.e.GET("/healthz", s.handleHealth)
	s.e.POST("/documents", s.handleUpload)
	s.e.GET("/invoices", s.handleListInvoices)
	s.e.GET("/invoices/export.xlsx", s.handleExport)
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", common.RequestIDFromContext(c.Request.Context()),
		)
	}
}

var badRequest = gin.H{
	"error": "bad request",
}

var internalServerError = gin.H{
	"error": "internal server error",
}

// MountMetrics serves h at GET /metrics.
func (s *Server) MountMetrics(h http.Handler) {
	s.e.GET("/metrics", gin.WrapH(h))
}
