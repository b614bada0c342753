package tarea

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Canonical estado vocabulary. Raw values outside the table pass through
// verbatim.
const (
	EstadoNoIniciado   = "No iniciado"
	EstadoEnCurso      = "En curso"
	EstadoImplementado = "Implementado"
	EstadoVerificado   = "Efectividad verificada"
	EstadoNoEfectivo   = "No efectivo"
)

// EstadoCanonico maps the planner status vocabulary onto the board
// vocabulary.
var EstadoCanonico = map[string]string{
	"No iniciado":            EstadoNoIniciado,
	"Informado":              EstadoEnCurso,
	"En curso":               EstadoEnCurso,
	"En procesos":            EstadoEnCurso,
	"Completado":             EstadoImplementado,
	"Implementado":           EstadoImplementado,
	"Efectividad verificada": EstadoVerificado,
	"No efectivo":            EstadoNoEfectivo,
}

var estadosCerrados = map[string]bool{
	EstadoImplementado: true,
	EstadoVerificado:   true,
	EstadoNoEfectivo:   true,
}

// CanonizarEstado maps a raw status through the canonicalization table.
// Unknown values are retained verbatim.
func CanonizarEstado(raw string) string {
	if canon, ok := EstadoCanonico[raw]; ok {
		return canon
	}
	return raw
}

// EstadoCerrado reports whether the status is one of the terminal values.
func EstadoCerrado(estado string) bool {
	return estadosCerrados[estado]
}

// ColaboradorSinAsignar is the sentinel for tasks without an assignee.
const ColaboradorSinAsignar = "Sin asignar"

const fechaLayout = "2006-01-02"

// Fecha is a calendar date without a time-of-day component.
type Fecha struct {
	time.Time
}

// NuevaFecha builds a Fecha at UTC midnight.
func NuevaFecha(year int, month time.Month, day int) Fecha {
	return Fecha{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FechaDe truncates a time.Time to its calendar date.
func FechaDe(t time.Time) Fecha {
	return NuevaFecha(t.Year(), t.Month(), t.Day())
}

// ISO renders the date as YYYY-MM-DD.
func (f Fecha) ISO() string {
	return f.Format(fechaLayout)
}

// Antes reports whether f falls strictly before other.
func (f Fecha) Antes(other Fecha) bool {
	return f.Time.Before(other.Time)
}

func (f Fecha) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.ISO())
}

func (f *Fecha) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseInLocation(fechaLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("parsing fecha %q: %w", raw, err)
	}
	f.Time = parsed
	return nil
}

func (f Fecha) Value() (driver.Value, error) {
	return f.Time, nil
}

func (f *Fecha) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*f = FechaDe(v)
		return nil
	case string:
		parsed, err := time.ParseInLocation(fechaLayout, v, time.UTC)
		if err != nil {
			return fmt.Errorf("scanning fecha %q: %w", v, err)
		}
		f.Time = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Fecha", src)
	}
}

// Etiquetas is a deduplicated, sorted set of labels stored as JSONB.
type Etiquetas []string

func (e Etiquetas) Value() (driver.Value, error) {
	if e == nil {
		e = Etiquetas{}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding etiquetas: %w", err)
	}
	return string(data), nil
}

func (e *Etiquetas) Scan(src any) error {
	return scanJSON(src, e, "etiquetas")
}

// Checklist wraps the sorted checklist item set. An empty checklist is
// represented as a nil *Checklist, never an empty structure.
type Checklist struct {
	Items []string `json:"items"`
}

func (c Checklist) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding checklist: %w", err)
	}
	return string(data), nil
}

func (c *Checklist) Scan(src any) error {
	return scanJSON(src, c, "checklist")
}

func scanJSON(src, dst any, field string) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into %s", src, field)
	}
}

// Tarea is the canonical task record. All fourteen canonical fields are
// always present; optional ones are nil when the source sheet lacked them.
type Tarea struct {
	// ID is the store-assigned surrogate key, zero until first insert.
	ID int64 `db:"id" json:"id,omitempty"`
	// IDTareaPlanner is the natural key correlating rows across uploads.
	IDTareaPlanner    string     `db:"id_tarea_planner"   json:"id_tarea_planner"`
	NombreTarea       *string    `db:"nombre_tarea"       json:"nombre_tarea"`
	Descripcion       *string    `db:"descripcion"        json:"descripcion"`
	Colaborador       string     `db:"colaborador"        json:"colaborador"`
	CreadoPor         *string    `db:"creado_por"         json:"creado_por"`
	Estado            *string    `db:"estado"             json:"estado"`
	Prioridad         *string    `db:"prioridad"          json:"prioridad"`
	FechaCreacion     *Fecha     `db:"fecha_creacion"     json:"fecha_creacion"`
	FechaVencimiento  *Fecha     `db:"fecha_vencimiento"  json:"fecha_vencimiento"`
	FechaFinalizacion *Fecha     `db:"fecha_finalizacion" json:"fecha_finalizacion"`
	CompletadoPor     *string    `db:"completado_por"     json:"completado_por"`
	Etiquetas         Etiquetas  `db:"etiquetas"          json:"etiquetas"`
	Checklist         *Checklist `db:"checklist"          json:"checklist"`
	Retrasada         bool       `db:"retrasada"          json:"retrasada"`
	NombreTablero     *string    `db:"nombre_tablero"     json:"nombre_tablero"`
}

// Cerrada reports whether the record is in a terminal estado.
func (t *Tarea) Cerrada() bool {
	return t.Estado != nil && EstadoCerrado(*t.Estado)
}
