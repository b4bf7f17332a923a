package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idgov/internal/ingestion/models"
	"idgov/internal/platform/config"
	"idgov/pkg/domain"
	dErrors "idgov/pkg/domain-errors"
)

func TestRunImportsFileIntoMemoryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sap.csv")
	require.NoError(t, os.WriteFile(path, []byte("id_user;nome;status\n1;Ana;Ativo\n2;Bruno;Inativo\n"), 0o600))

	var out bytes.Buffer
	err := run(context.Background(), config.Config{Ingestion: config.IngestionConfig{MaxUploadBytes: 1 << 20}},
		slog.New(slog.NewTextHandler(io.Discard, nil)), "SAP", path, &out)
	require.NoError(t, err)

	var importRun models.ImportRun
	require.NoError(t, json.Unmarshal(out.Bytes(), &importRun))
	assert.Equal(t, domain.SystemName("SAP"), importRun.SourceSystem)
	assert.Equal(t, "sap.csv", importRun.Filename)
	assert.Equal(t, 2, importRun.RowsImported)
	assert.Equal(t, models.RunStatusSuccess, importRun.Status)
}

func TestRunRequiresFlags(t *testing.T) {
	err := run(context.Background(), config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)), "", "", io.Discard)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestRunMissingFile(t *testing.T) {
	err := run(context.Background(), config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)), "SAP", filepath.Join(t.TempDir(), "absent.csv"), io.Discard)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
