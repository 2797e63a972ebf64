package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/repository"
)

const (
	numberOnly = "Invoice number/Αριθμός τιμολογίου: 12345"
	fullInvoice = "Για την περίοδο 01 Ιανουαρίου 2024 - 31 Ιανουαρίου 2024\n" +
		"Πληρωτέο μέχρι 15/02/2024\n" +
		"Invoice number/Αριθμός τιμολογίου: 987"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeDecoder struct {
	text string
	err  error
}

func (f fakeDecoder) Decode(context.Context, entity.Document) (string, error) {
	return f.text, f.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func newStore(t *testing.T, opts ...repository.Option) (repository.InvoiceRepository, repository.Config) {
	t.Helper()
	cfg := repository.Config{
		Location:        filepath.Join(t.TempDir(), "invoices.db"),
		InsertStatement: "INSERT INTO invoices (invoice_number, period_start, period_end, due_date) VALUES (?, ?, ?, ?)",
	}
	repo := repository.NewInvoiceRepository(cfg, discard)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	if len(opts) > 0 {
		return repository.NewInvoiceRepository(cfg, discard, opts...), cfg
	}
	return repo, cfg
}

func newProcessor(dec extract.TextDecoder, repo repository.InvoiceRepository, n *recordingNotifier) *Processor {
	return NewProcessor(discard, dec, extract.NewExtractor(nil, discard), repo, n)
}

func TestNumberOnlyInvoiceIsNotPersisted(t *testing.T) {
	repo, _ := newStore(t)
	p := newProcessor(nil, repo, &recordingNotifier{})

	out, err := p.ProcessText(context.Background(), numberOnly)
	require.NoError(t, err)
	assert.Equal(t, constants.OutcomeIncomplete, out.Status)
	assert.False(t, out.Persisted())
	require.NotNil(t, out.Record.InvoiceNumber)
	assert.Equal(t, "12345", *out.Record.InvoiceNumber)
	assert.Equal(t, []string{"periodStart", "periodEnd", "dueDate"}, out.Missing)

	rows, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCompleteInvoiceIsPersisted(t *testing.T) {
	repo, _ := newStore(t)
	p := newProcessor(fakeDecoder{text: fullInvoice}, repo, &recordingNotifier{})

	out, err := p.ProcessDocument(context.Background(), entity.Document{Name: "inv.pdf"})
	require.NoError(t, err)
	assert.True(t, out.Persisted())
	assert.Empty(t, out.Missing)

	rows, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, entity.StoredInvoiceRow{
		InvoiceNumber: "987",
		PeriodStart:   "01 Ιανουαρίου 2024",
		PeriodEnd:     "31 Ιανουαρίου 2024",
		DueDate:       "15/02/2024",
	}, rows[0])
}

func TestStoreUnreachableNotifiesAndSkips(t *testing.T) {
	healthy, cfg := newStore(t)
	down := repository.NewInvoiceRepository(cfg, discard, repository.WithOpener(
		func(context.Context) (*entsql.Driver, func(), error) {
			return nil, nil, errors.New("dial tcp: connection refused")
		}))
	n := &recordingNotifier{}
	p := newProcessor(nil, down, n)

	out, err := p.ProcessText(context.Background(), fullInvoice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorage))
	assert.Equal(t, constants.OutcomeStoreFail, out.Status)
	assert.Equal(t, []string{"invoice 987 was not saved"}, n.msgs)

	rows, err := healthy.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecodeFailureSkipsExtraction(t *testing.T) {
	repo, _ := newStore(t)
	n := &recordingNotifier{}
	p := newProcessor(fakeDecoder{text: fullInvoice, err: errors.New("corrupt pdf")}, repo, n)

	out, err := p.ProcessDocument(context.Background(), entity.Document{Name: "bad.pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDecode))
	assert.Equal(t, constants.OutcomeDecodeFail, out.Status)
	assert.Equal(t, entity.InvoiceRecord{}, out.Record)
	assert.Equal(t, []string{"could not read bad.pdf"}, n.msgs)

	rows, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

type outcomeCounts map[constants.Outcome]int

func (c outcomeCounts) RecordOutcome(status constants.Outcome, _ time.Duration) { c[status]++ }

func TestRecorderSeesEveryDocument(t *testing.T) {
	repo, _ := newStore(t)
	counts := outcomeCounts{}
	p := newProcessor(fakeDecoder{text: fullInvoice}, repo, &recordingNotifier{})
	p.Recorder = counts

	_, err := p.ProcessDocument(context.Background(), entity.Document{Name: "a.txt"})
	require.NoError(t, err)
	p.Decoder = fakeDecoder{err: errors.New("corrupt")}
	_, err = p.ProcessDocument(context.Background(), entity.Document{Name: "b.pdf"})
	require.Error(t, err)

	assert.Equal(t, outcomeCounts{constants.OutcomePersisted: 1, constants.OutcomeDecodeFail: 1}, counts)
}

func TestEmptyDecodedTextIsIncomplete(t *testing.T) {
	repo, _ := newStore(t)
	p := newProcessor(fakeDecoder{}, repo, &recordingNotifier{})

	out, err := p.ProcessDocument(context.Background(), entity.Document{Name: "blank.txt"})
	require.NoError(t, err)
	assert.Equal(t, constants.OutcomeIncomplete, out.Status)
	assert.Len(t, out.Missing, 4)
}

func TestDocumentLogsCarryRequestID(t *testing.T) {
	repo, _ := newStore(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewProcessor(logger, fakeDecoder{text: numberOnly}, extract.NewExtractor(nil, discard), repo, &recordingNotifier{})

	ctx := common.WithRequestID(context.Background(), "req-42")
	_, err := p.ProcessDocument(ctx, entity.Document{Name: "a.txt"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "request_id=req-42")

	buf.Reset()
	_, err = p.ProcessDocument(context.Background(), entity.Document{Name: "b.txt"})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "request_id")
}
