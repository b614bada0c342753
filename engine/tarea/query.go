package tarea

const (
	// OrdenPorDefecto is the sort column used when the requested one is
	// not allow-listed.
	OrdenPorDefecto = "fecha_creacion"

	LimitePorDefecto = 100
	LimiteMaximo     = 1000
)

// ColumnasOrdenables is the allow-list of sortable columns.
var ColumnasOrdenables = map[string]bool{
	"fecha_creacion":     true,
	"fecha_vencimiento":  true,
	"fecha_finalizacion": true,
	"prioridad":          true,
	"estado":             true,
	"colaborador":        true,
	"nombre_tablero":     true,
}

// Filtro is the validated read-side filter. Multi-value fields are already
// split; dates are already parsed at the boundary.
type Filtro struct {
	Estados       []string
	Prioridades   []string
	Colaboradores []string
	Tablero       string

	CreacionDesde     *Fecha
	CreacionHasta     *Fecha
	VencimientoDesde  *Fecha
	VencimientoHasta  *Fecha
	FinalizacionDesde *Fecha
	FinalizacionHasta *Fecha

	// Texto is matched case-insensitively against nombre and descripcion.
	Texto string

	OrderBy  string
	OrderDir string
	Limit    int
	Offset   int
}

// Normalizar applies defaults and clamps pagination. A non-allow-listed
// OrderBy silently falls back to the default column.
func (f *Filtro) Normalizar() {
	if !ColumnasOrdenables[f.OrderBy] {
		f.OrderBy = OrdenPorDefecto
	}
	if f.OrderDir != "asc" && f.OrderDir != "desc" {
		f.OrderDir = "desc"
	}
	if f.Limit < 1 {
		f.Limit = LimitePorDefecto
	}
	if f.Limit > LimiteMaximo {
		f.Limit = LimiteMaximo
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
