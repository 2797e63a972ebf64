package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

func TestHandlerExposesOutcomesAndQueueDepth(t *testing.T) {
	m := New()
	m.RecordOutcome(constants.OutcomePersisted, 2*time.Second)
	m.RecordOutcome(constants.OutcomePersisted, time.Second)
	m.RecordOutcome(constants.OutcomeIncomplete, time.Millisecond)
	m.TrackQueue(func() int { return 3 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `invoices_documents_processed_total{status="PERSISTED"} 2`)
	assert.Contains(t, body, `invoices_documents_processed_total{status="INCOMPLETE"} 1`)
	assert.Contains(t, body, "invoices_document_duration_seconds_count 3")
	assert.Contains(t, body, "invoices_queue_depth 3")
}
