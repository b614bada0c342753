package importer

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ingenieria/tareas-api/engine/tarea"
)

// fechaLayouts are the formats tried first, day-first per planner exports.
var fechaLayouts = []string{
	"02/01/2006",
	"2006-01-02",
}

// fechaLayoutsFallback is the best-effort tail for cells whose number
// format was applied by the sheet tool.
var fechaLayoutsFallback = []string{
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04",
	"02/01/06",
	"2/1/06",
	"02-01-06",
}

// excelEpoch is day zero of the 1900 date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// parseFecha turns a cell into a calendar date. Blank or NaN-like values
// yield nil, as do strings no layout can parse.
func parseFecha(raw string) *tarea.Fecha {
	s := sanitizeCell(raw)
	if s == "" {
		return nil
	}
	for _, layout := range fechaLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			f := tarea.FechaDe(t)
			return &f
		}
	}
	for _, layout := range fechaLayoutsFallback {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			f := tarea.FechaDe(t)
			return &f
		}
	}
	// Unformatted date cells surface as raw serial numbers.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		f := tarea.FechaDe(excelEpoch.AddDate(0, 0, int(serial)))
		return &f
	}
	return nil
}

// parseLista splits a delimiter-separated cell into a deduplicated,
// lexicographically sorted set.
func parseLista(raw string) []string {
	seen := make(map[string]bool)
	for _, token := range strings.Split(raw, ";") {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			seen[trimmed] = true
		}
	}
	items := make([]string, 0, len(seen))
	for item := range seen {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

var boolVerdadero = map[string]bool{
	"true": true, "verdadero": true, "si": true, "sí": true, "1": true, "yes": true,
}

var boolFalso = map[string]bool{
	"false": true, "falso": true, "no": true, "0": true,
}

// parseBoolCell interprets an explicit boolean cell. The second return is
// false when the cell is blank. Unrecognized non-blank text counts as true,
// matching how planner exports mark flags with arbitrary text.
func parseBoolCell(raw string) (value, present bool) {
	s := strings.ToLower(sanitizeCell(raw))
	if s == "" {
		return false, false
	}
	if boolFalso[s] {
		return false, true
	}
	if boolVerdadero[s] {
		return true, true
	}
	return true, true
}

// sanitizeCell trims a cell and collapses NaN-like and non-finite numeric
// values to blank so they can never reach the persisted payload.
func sanitizeCell(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ""
		}
	}
	return s
}

func strPtr(raw string) *string {
	if s := sanitizeCell(raw); s != "" {
		return &s
	}
	return nil
}

// construirTarea assembles a canonical record from a renamed row. Rows
// without a natural key are dropped; the second return is false for them.
func construirTarea(fila map[string]string, hoy tarea.Fecha) (*tarea.Tarea, bool) {
	id := strings.TrimSpace(fila["id_tarea_planner"])
	if id == "" {
		return nil, false
	}

	t := &tarea.Tarea{
		IDTareaPlanner: id,
		NombreTarea:    strPtr(fila["nombre_tarea"]),
		Descripcion:    strPtr(fila["descripcion"]),
		CreadoPor:      strPtr(fila["creado_por"]),
		Prioridad:      strPtr(fila["prioridad"]),
		CompletadoPor:  strPtr(fila["completado_por"]),
		NombreTablero:  strPtr(fila["nombre_tablero"]),
	}

	if estadoRaw := sanitizeCell(fila["estado"]); estadoRaw != "" {
		canon := tarea.CanonizarEstado(estadoRaw)
		t.Estado = &canon
	}

	t.Colaborador = tarea.ColaboradorSinAsignar
	if colab := sanitizeCell(fila["colaborador"]); colab != "" {
		t.Colaborador = colab
	}

	t.FechaCreacion = parseFecha(fila["fecha_creacion"])
	t.FechaVencimiento = parseFecha(fila["fecha_vencimiento"])
	t.FechaFinalizacion = parseFecha(fila["fecha_finalizacion"])

	t.Etiquetas = parseLista(fila["etiquetas"])
	if items := parseLista(fila["checklist_items"]); len(items) > 0 {
		t.Checklist = &tarea.Checklist{Items: items}
	}

	vencida := t.FechaVencimiento != nil && t.FechaVencimiento.Antes(hoy) && !t.Cerrada()
	t.Retrasada = vencida
	if explicita, presente := parseBoolCell(fila["retrasada"]); presente {
		t.Retrasada = explicita || vencida
	}

	return t, true
}
