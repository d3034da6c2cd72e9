package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	dataset := Dataset{
		Headers: []string{"Aluno", "Curso", "Dia"},
		Rows: []map[string]string{
			{"Aluno": "João Lima", "Curso": "Informática", "Dia": "Segunda"},
			{"Aluno": "Ana Souza", "Curso": "Excel Avançado"},
		},
	}

	payload, err := NewCSVExporter().Render(dataset)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(payload[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Aluno", "Curso", "Dia"}, records[0])
	assert.Equal(t, []string{"João Lima", "Informática", "Segunda"}, records[1])
	// Missing columns come out empty.
	assert.Equal(t, []string{"Ana Souza", "Excel Avançado", ""}, records[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}
