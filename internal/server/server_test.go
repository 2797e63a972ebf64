package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeProcessor struct {
	out  pipeline.Outcome
	err  error
	seen []entity.Document
}

func (f *fakeProcessor) ProcessDocument(_ context.Context, doc entity.Document) (pipeline.Outcome, error) {
	f.seen = append(f.seen, doc)
	return f.out, f.err
}

type fakeInvoices struct {
	rows []entity.StoredInvoiceRow
	err  error
}

func (f *fakeInvoices) Insert(context.Context, entity.InvoiceRecord) error { return nil }
func (f *fakeInvoices) EnsureSchema(context.Context) error                 { return nil }
func (f *fakeInvoices) CheckSchema(context.Context) error                  { return nil }
func (f *fakeInvoices) FetchAll(context.Context) ([]entity.StoredInvoiceRow, error) {
	if f.err != nil {
		return []entity.StoredInvoiceRow{}, f.err
	}
	return f.rows, nil
}

type fakeExporter struct {
	data []byte
	err  error
}

func (f fakeExporter) InvoicesXLSX(context.Context) ([]byte, error) { return f.data, f.err }

func upload(t *testing.T, h http.Handler, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestUploadPersisted(t *testing.T) {
	n := "987"
	proc := &fakeProcessor{out: pipeline.Outcome{Status: constants.OutcomePersisted, Record: entity.InvoiceRecord{InvoiceNumber: &n}}}
	s := New(proc, &fakeInvoices{}, fakeExporter{}, nil, discard)
	refreshed := 0
	s.OnPersisted = func() { refreshed++ }

	rec := upload(t, s.Handler(), "inv.txt", "text")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, 1, refreshed)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PERSISTED", body["status"])
	assert.Equal(t, proc.seen[0].ID.String(), body["document_id"])
	assert.Equal(t, "inv.txt", proc.seen[0].Name)
	assert.Equal(t, []byte("text"), proc.seen[0].Data)
}

func TestUploadOutcomes(t *testing.T) {
	cases := []struct {
		name string
		out  pipeline.Outcome
		err  error
		code int
	}{
		{"incomplete", pipeline.Outcome{Status: constants.OutcomeIncomplete, Missing: []string{"dueDate"}}, nil, http.StatusOK},
		{"decode", pipeline.Outcome{Status: constants.OutcomeDecodeFail}, common.DecodeError("decode", errors.New("bad")), http.StatusUnprocessableEntity},
		{"storage", pipeline.Outcome{Status: constants.OutcomeStoreFail}, common.StorageError("insert", errors.New("down")), http.StatusServiceUnavailable},
		{"other", pipeline.Outcome{}, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(&fakeProcessor{out: tc.out, err: tc.err}, &fakeInvoices{}, fakeExporter{}, nil, discard)
			s.OnPersisted = func() { t.Fatal("no refresh expected") }
			rec := upload(t, s.Handler(), "inv.pdf", "%PDF")
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestUploadRejectsBadRequests(t *testing.T) {
	proc := &fakeProcessor{}
	s := New(proc, &fakeInvoices{}, fakeExporter{}, nil, discard)

	rec := upload(t, s.Handler(), "notes.docx", "x")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/documents", nil)
	r := httptest.NewRecorder()
	s.Handler().ServeHTTP(r, req)
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Empty(t, proc.seen)
}

func TestListInvoices(t *testing.T) {
	repo := &fakeInvoices{rows: []entity.StoredInvoiceRow{{InvoiceNumber: "1", PeriodStart: "a", PeriodEnd: "b", DueDate: "c"}}}
	s := New(&fakeProcessor{}, repo, fakeExporter{}, nil, discard)

	rec := get(s.Handler(), "/invoices")
	require.Equal(t, http.StatusOK, rec.Code)
	var body tableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"invoiceNumber", "periodStart", "periodEnd", "dueDate"}, body.Header)
	assert.Equal(t, []entity.TableRow{{"1", "a", "b", "c"}}, body.Rows)
}

func TestListInvoicesStoreDown(t *testing.T) {
	s := New(&fakeProcessor{}, &fakeInvoices{err: errors.New("down")}, fakeExporter{}, nil, discard)

	rec := get(s.Handler(), "/invoices")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body tableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body.Rows)
	assert.Empty(t, body.Rows)
	assert.Len(t, body.Header, 4)
}

func TestExport(t *testing.T) {
	s := New(&fakeProcessor{}, &fakeInvoices{}, fakeExporter{data: []byte("PK")}, nil, discard)
	rec := get(s.Handler(), "/invoices/export.xlsx")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "PK", rec.Body.String())

	s = New(&fakeProcessor{}, &fakeInvoices{}, fakeExporter{err: errors.New("down")}, nil, discard)
	assert.Equal(t, http.StatusServiceUnavailable, get(s.Handler(), "/invoices/export.xlsx").Code)
}

func TestHealthAndRequestID(t *testing.T) {
	healthy := New(&fakeProcessor{}, &fakeInvoices{}, fakeExporter{}, func(context.Context) error { return nil }, discard)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	healthy.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(requestIDHeader))

	down := New(&fakeProcessor{}, &fakeInvoices{}, fakeExporter{}, func(context.Context) error { return errors.New("down") }, discard)
	assert.Equal(t, http.StatusServiceUnavailable, get(down.Handler(), "/healthz").Code)
}

func TestMountMetrics(t *testing.T) {
	s := New(&fakeProcessor{}, &fakeInvoices{}, fakeExporter{}, nil, discard)
	assert.Equal(t, http.StatusNotFound, get(s.Handler(), "/metrics").Code)

	s.MountMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("invoices_queue_depth 0\n"))
	}))
	rec := get(s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "invoices_queue_depth 0\n", rec.Body.String())
}
