package importer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ingenieria/tareas-api/engine/tarea"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &row))
	}
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestProcesar(t *testing.T) {
	t.Run("Should parse a planner export into canonical records", func(t *testing.T) {
		buf := buildWorkbook(t, [][]any{
			{"Id. de tarea", "Nombre de la tarea", "Progreso", "Asignado a", "Fecha de creación", "Etiquetas"},
			{"T-1", "Cambiar rodamiento", "Completado", "Ana", "05/03/2024", "mecánica;urgente;mecánica"},
			{"T-2", "Revisar tablero", "No iniciado", "", "2024-03-06", ""},
		})

		tareas, err := Procesar(context.Background(), buf)

		require.NoError(t, err)
		require.Len(t, tareas, 2)

		first := tareas[0]
		assert.Equal(t, "T-1", first.IDTareaPlanner)
		require.NotNil(t, first.Estado)
		assert.Equal(t, tarea.EstadoImplementado, *first.Estado)
		assert.Equal(t, "Ana", first.Colaborador)
		require.NotNil(t, first.FechaCreacion)
		assert.Equal(t, "2024-03-05", first.FechaCreacion.ISO())
		assert.Equal(t, tarea.Etiquetas{"mecánica", "urgente"}, first.Etiquetas)

		second := tareas[1]
		assert.Equal(t, tarea.ColaboradorSinAsignar, second.Colaborador)
		require.NotNil(t, second.FechaCreacion)
		assert.Equal(t, "2024-03-06", second.FechaCreacion.ISO())
	})

	t.Run("Should drop rows without a natural key", func(t *testing.T) {
		buf := buildWorkbook(t, [][]any{
			{"Id. de tarea", "Nombre de la tarea"},
			{"", "huérfana"},
			{"T-9", "válida"},
		})

		tareas, err := Procesar(context.Background(), buf)

		require.NoError(t, err)
		require.Len(t, tareas, 1)
		assert.Equal(t, "T-9", tareas[0].IDTareaPlanner)
	})

	t.Run("Should ignore unknown columns", func(t *testing.T) {
		buf := buildWorkbook(t, [][]any{
			{"Id. de tarea", "Columna misteriosa"},
			{"T-1", "lo que sea"},
		})

		tareas, err := Procesar(context.Background(), buf)

		require.NoError(t, err)
		require.Len(t, tareas, 1)
		assert.Nil(t, tareas[0].NombreTarea)
	})

	t.Run("Should fail on bytes that are not a workbook", func(t *testing.T) {
		_, err := Procesar(context.Background(), bytes.NewBufferString("no soy un xlsx"))

		require.Error(t, err)
	})
}
