// Package importer parses planner spreadsheet exports into canonical task
// records: header synonyms are collapsed onto canonical field names, cells
// are normalized column-wise, and rows without a natural key are dropped.
package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ingenieria/tareas-api/engine/tarea"
	"github.com/ingenieria/tareas-api/pkg/logger"
)

// Procesar reads the first sheet of a workbook, treating the first row as
// the header, and returns one canonical record per row carrying a natural
// key. Rows missing the key are dropped silently.
func Procesar(ctx context.Context, r io.Reader) ([]*tarea.Tarea, error) {
	log := logger.FromContext(ctx)
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := cleanHeaders(rows[0])
	renames := buildRenames(headers)
	names := make([]string, len(headers))
	for i, h := range headers {
		if canon, ok := renames[h]; ok {
			names[i] = canon
		} else {
			names[i] = h
		}
	}
	log.Debug("columnas renombradas", "hoja", sheets[0], "columnas", names)

	hoy := tarea.FechaDe(time.Now())
	tareas := make([]*tarea.Tarea, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fila := make(map[string]string, len(names))
		for i, cell := range row {
			if i >= len(names) {
				break
			}
			fila[names[i]] = cell
		}
		if t, ok := construirTarea(fila, hoy); ok {
			tareas = append(tareas, t)
		}
	}
	log.Info("hoja procesada", "filas", len(rows)-1, "tareas", len(tareas))
	return tareas, nil
}

func cleanHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.ReplaceAll(strings.TrimSpace(h), "\u00a0", " ")
	}
	return headers
}
