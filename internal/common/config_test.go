package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INVOICE_STORE_LOCATION", "invoices.db")
	t.Setenv("INVOICE_INSERT_STATEMENT", "INSERT INTO invoices VALUES (?, ?, ?, ?)")
	t.Setenv("QUEUE_WORKERS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "invoices.db", cfg.Store.Location)
	assert.True(t, cfg.Store.EnsureSchema)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Zero(t, cfg.OCR.Timeout)
	assert.Zero(t, cfg.Queue.JobTimeout)
}

func TestLoadConfigOCRTimeout(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OCR_TIMEOUT", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.OCR.Timeout)

	t.Setenv("OCR_TIMEOUT", "soon")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Zero(t, cfg.OCR.Timeout)
}

func TestValidateMissingOptions(t *testing.T) {
	cases := map[string]Config{
		"no location":  {Store: StoreConfig{InsertStatement: "INSERT"}},
		"no statement": {Store: StoreConfig{Location: "x.db"}},
		"blank":        {Store: StoreConfig{Location: "  ", InsertStatement: "INSERT"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))

			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, CodeConfig, appErr.Code)
		})
	}
}
