package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
	"github.com/joseph-ayodele/invoice-scanner/internal/table"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type uploadResponse struct {
	DocumentID string `json:"document_id"`
	pipeline.Outcome
	Error string `json:"error,omitempty"`
}

type tableResponse struct {
	Header []string          `json:"header"`
	Rows   []entity.TableRow `json:"rows"`
	Error  string            `json:"error,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	name := filepath.Base(fh.Filename)
	if constants.MapExtToFormat(filepath.Ext(name)) == "" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, badRequest)
		return
	}

	doc := entity.Document{ID: uuid.New(), Name: name, Data: data}
	out, err := s.proc.ProcessDocument(c.Request.Context(), doc)

	resp := uploadResponse{DocumentID: doc.ID.String(), Outcome: out}
	switch {
	case err == nil && out.Persisted():
		if s.OnPersisted != nil {
			s.OnPersisted()
		}
		c.JSON(http.StatusCreated, resp)
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, common.ErrDecode):
		resp.Error = "document could not be read"
		c.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(err, common.ErrStorage):
		resp.Error = "invoice was not saved"
		c.JSON(http.StatusServiceUnavailable, resp)
	default:
		s.logger.Error("upload failed", "document", name, "error", err)
		c.JSON(http.StatusInternalServerError, internalServerError)
	}
}

func (s *Server) handleListInvoices(c *gin.Context) {
	stored, err := s.invoices.FetchAll(c.Request.Context())
	resp := tableResponse{Header: table.Header(), Rows: table.Project(stored)}
	if err != nil {
		resp.Error = "invoices could not be loaded"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExport(c *gin.Context) {
	data, err := s.export.InvoicesXLSX(c.Request.Context())
	if err != nil {
		s.logger.Error("export failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
