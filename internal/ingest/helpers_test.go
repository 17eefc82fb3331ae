package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type sheetRows = map[Entity][]map[string]any

func xlsx(t *testing.T, rows sheetRows) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, DefaultLayout(), rows, false))
	return buf.Bytes()
}

// rawXLSX arma un libro con hojas y celdas arbitrarias (encabezados libres).
func rawXLSX(t *testing.T, sheets map[string][][]any, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			line := row
			require.NoError(t, f.SetSheetRow(name, cell, &line))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func literalBatch() sheetRows {
	return sheetRows{
		EntityClient:    {{FieldName: "Ana", FieldEmail: "ana@x.com", FieldCountry: "CR"}},
		EntityProduct:   {{FieldSKU: "P1", FieldName: "Widget", FieldCategory: "Tools"}},
		EntityOrder:     {{FieldEmail: "ana@x.com", FieldChannel: "WEB", FieldTotal: 50}},
		EntityOrderLine: {{FieldOrderIndex: 1, FieldSKU: "P1", FieldQuantity: 2, FieldUnitPrice: 25}},
	}
}
