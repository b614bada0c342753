package reconciler

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/ingenieria/tareas-api/engine/tarea"
)

// payload is the comparable-field subset used for content equality. The
// surrogate id and any bookkeeping columns stay out; field order is fixed
// so the canonical serialization is deterministic.
type payload struct {
	NombreTarea       *string           `json:"nombre_tarea"`
	Descripcion       *string           `json:"descripcion"`
	Colaborador       string            `json:"colaborador"`
	CreadoPor         *string           `json:"creado_por"`
	Estado            *string           `json:"estado"`
	Prioridad         *string           `json:"prioridad"`
	FechaCreacion     *string           `json:"fecha_creacion"`
	FechaVencimiento  *string           `json:"fecha_vencimiento"`
	FechaFinalizacion *string           `json:"fecha_finalizacion"`
	CompletadoPor     *string           `json:"completado_por"`
	Etiquetas         []string          `json:"etiquetas"`
	Checklist         *checklistPayload `json:"checklist"`
	Retrasada         bool              `json:"retrasada"`
	NombreTablero     *string           `json:"nombre_tablero"`
}

type checklistPayload struct {
	Items []string `json:"items"`
}

func payloadFor(t *tarea.Tarea) payload {
	p := payload{
		NombreTarea:       t.NombreTarea,
		Descripcion:       t.Descripcion,
		Colaborador:       t.Colaborador,
		CreadoPor:         t.CreadoPor,
		Estado:            t.Estado,
		Prioridad:         t.Prioridad,
		FechaCreacion:     isoFecha(t.FechaCreacion),
		FechaVencimiento:  isoFecha(t.FechaVencimiento),
		FechaFinalizacion: isoFecha(t.FechaFinalizacion),
		CompletadoPor:     t.CompletadoPor,
		Etiquetas:         sortedCopy(t.Etiquetas),
		Retrasada:         t.Retrasada,
		NombreTablero:     t.NombreTablero,
	}
	if t.Checklist != nil && len(t.Checklist.Items) > 0 {
		p.Checklist = &checklistPayload{Items: sortedCopy(t.Checklist.Items)}
	}
	return p
}

// iguales compares two records over the comparable-field subset via their
// canonical serializations, so list ordering in either side is irrelevant.
func iguales(a, b *tarea.Tarea) bool {
	aj, errA := json.Marshal(payloadFor(a))
	bj, errB := json.Marshal(payloadFor(b))
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

func isoFecha(f *tarea.Fecha) *string {
	if f == nil {
		return nil
	}
	iso := f.ISO()
	return &iso
}

func sortedCopy(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	sort.Strings(out)
	return out
}
