package ingest

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RawRow es una fila tal como sale del libro, antes de validar. Index es la
// posición 1-based entre las filas de datos de la hoja (sin encabezado ni
// filas vacías).
type RawRow struct {
	Entity Entity
	Index  int
	Fields map[string]any
}

// Workbook agrupa las filas por entidad. Las hojas ausentes no aparecen en Sheets.
type Workbook struct {
	Sheets map[Entity][]RawRow
}

func (w *Workbook) Has(e Entity) bool {
	_, ok := w.Sheets[e]
	return ok
}

func (w *Workbook) Rows(e Entity) []RawRow { return w.Sheets[e] }

// Parse lee el libro completo en memoria. Solo se consideran las hojas del
// layout; si no hay ninguna devuelve ErrEmptyWorkbook.
func Parse(data []byte, layout Layout) (*Workbook, error) {
	if len(data) == 0 {
		return nil, inputError("archivo vacío", nil)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, inputError("no se pudo leer el archivo Excel", err)
	}
	defer f.Close()

	wb := &Workbook{Sheets: map[Entity][]RawRow{}}
	seen := map[Entity]string{}
	for _, name := range f.GetSheetList() {
		sl, ok := layout.sheetFor(name)
		if !ok {
			continue
		}
		if prev, dup := seen[sl.Entity]; dup {
			return nil, inputError(fmt.Sprintf("las hojas %q y %q corresponden a la misma entidad", prev, name), nil)
		}
		seen[sl.Entity] = name

		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, inputError(fmt.Sprintf("no se pudo leer la hoja %s", name), err)
		}
		parsed, err := parseSheet(sl, name, rows)
		if err != nil {
			return nil, err
		}
		wb.Sheets[sl.Entity] = parsed
	}
	if len(wb.Sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return wb, nil
}

// parseSheet toma la primera fila como encabezado. Una hoja con datos pero
// sin columnas reconocidas, o una fila con valores solo en columnas
// desconocidas, es un error de entrada: no se descarta en silencio.
func parseSheet(sl SheetLayout, name string, rows [][]string) ([]RawRow, error) {
	out := []RawRow{}
	if len(rows) == 0 {
		return out, nil
	}
	cols := make([]*Column, len(rows[0]))
	known := 0
	for i, h := range rows[0] {
		if c, ok := sl.columnFor(h); ok {
			cols[i] = &c
			known++
		}
	}
	idx := 0
	for _, row := range rows[1:] {
		fields := map[string]any{}
		blank := true
		for i, cell := range row {
			v := strings.TrimSpace(cell)
			if v == "" {
				continue
			}
			blank = false
			if i >= len(cols) || cols[i] == nil {
				continue
			}
			fields[cols[i].Field] = coerce(cols[i].Kind, v)
		}
		if blank {
			continue
		}
		idx++
		if known == 0 {
			return nil, &Error{Kind: KindInput, Sheet: name, Msg: fmt.Sprintf("la hoja %s no tiene columnas reconocidas en la fila 1", name)}
		}
		if len(fields) == 0 {
			return nil, &Error{Kind: KindInput, Sheet: name, Row: idx, Msg: "la fila solo tiene valores en columnas no reconocidas"}
		}
		out = append(out, RawRow{Entity: sl.Entity, Index: idx, Fields: fields})
	}
	return out, nil
}

// coerce convierte a número las columnas numéricas y a fecha los seriales de
// Excel en columnas de fecha. Lo que no se puede convertir se deja como texto
// para que lo rechace el validador.
func coerce(kind ColumnKind, v string) any {
	switch kind {
	case ColNumber:
		if n, err := strconv.ParseFloat(v, 64); err == nil && finite(n) {
			return n
		}
	case ColDate:
		if n, err := strconv.ParseFloat(v, 64); err == nil && finite(n) {
			if t, err := excelize.ExcelDateToTime(n, false); err == nil {
				return t
			}
		}
	}
	return v
}

func finite(n float64) bool { return !math.IsNaN(n) && !math.IsInf(n, 0) }
