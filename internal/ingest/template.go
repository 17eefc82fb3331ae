package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook escribe un libro con una hoja por entidad presente en rows
// (o todas si includeAll), encabezados canónicos y las filas dadas.
func WriteWorkbook(w io.Writer, layout Layout, rows map[Entity][]map[string]any, includeAll bool) error {
	f, err := buildWorkbook(layout, rows, includeAll)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func buildWorkbook(layout Layout, rows map[Entity][]map[string]any, includeAll bool) (*excelize.File, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	written := 0
	for _, sl := range layout.Sheets {
		data, ok := rows[sl.Entity]
		if !ok && !includeAll {
			continue
		}
		name := sl.Names[0]
		if written == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fail(f, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fail(f, err)
		}
		written++

		heads := make([]any, len(sl.Columns))
		for i, c := range sl.Columns {
			heads[i] = c.Field
			col, _ := excelize.ColumnNumberToName(i + 1)
			_ = f.SetColWidth(name, col, col, 18)
		}
		if err := f.SetSheetRow(name, "A1", &heads); err != nil {
			return fail(f, err)
		}
		_ = f.SetRowStyle(name, 1, 1, header)

		for r, values := range data {
			line := make([]any, len(sl.Columns))
			for i, c := range sl.Columns {
				line[i] = values[c.Field]
			}
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(name, cell, &line); err != nil {
				return fail(f, err)
			}
		}
	}
	if written == 0 {
		return fail(f, fmt.Errorf("no hay hojas para escribir"))
	}
	return f, nil
}

func fail(f *excelize.File, err error) (*excelize.File, error) {
	f.Close()
	return nil, err
}

// WriteTemplate genera la plantilla vacía de carga masiva con una hoja de instrucciones.
func WriteTemplate(w io.Writer, layout Layout) error {
	f, err := buildWorkbook(layout, nil, true)
	if err != nil {
		return err
	}
	defer f.Close()

	const sh = "Instrucciones"
	if _, err := f.NewSheet(sh); err != nil {
		return err
	}
	lines := []string{
		"Carga masiva de datos de la tienda",
		"",
		"1. Cliente: se actualiza por correo si ya existe; sin correo siempre se crea uno nuevo.",
		"2. Producto: se actualiza por sku; el sku es obligatorio.",
		"3. Orden: correo debe ser de un cliente de este archivo o ya registrado. Cada fila crea una orden.",
		"4. OrdenDetalle: OrdenIndex es la posición (desde 1) de la orden en la hoja Orden de este mismo archivo.",
		"",
		"Las hojas son opcionales. Si alguna referencia no existe no se guarda nada.",
	}
	for i, l := range lines {
		if err := f.SetCellValue(sh, fmt.Sprintf("A%d", i+1), l); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sh, "A", "A", 110)
	return f.Write(w)
}
