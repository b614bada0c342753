package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ingenieria/tareas-api/engine/tarea"
)

// DBInterface defines the minimal interface needed by the repository.
type DBInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TareaRepo implements the reconciler repository and the filtered read side
// over the tareas table.
type TareaRepo struct {
	db DBInterface
}

func NewTareaRepo(db DBInterface) *TareaRepo {
	return &TareaRepo{db: db}
}

var tareaColumns = []string{
	"id",
	"id_tarea_planner",
	"nombre_tarea",
	"descripcion",
	"colaborador",
	"creado_por",
	"estado",
	"prioridad",
	"fecha_creacion",
	"fecha_vencimiento",
	"fecha_finalizacion",
	"completado_por",
	"etiquetas",
	"checklist",
	"retrasada",
	"nombre_tablero",
}

// upsertColumns excludes the surrogate id, which the store assigns.
var upsertColumns = tareaColumns[1:]

var upsertSuffix = buildUpsertSuffix()

func buildUpsertSuffix() string {
	assignments := make([]string, 0, len(upsertColumns)-1)
	for _, col := range upsertColumns {
		if col == "id_tarea_planner" {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return "ON CONFLICT (id_tarea_planner) DO UPDATE SET " + strings.Join(assignments, ", ")
}

// ListarPorClaves fetches the persisted rows whose natural key is in claves.
func (r *TareaRepo) ListarPorClaves(ctx context.Context, claves []string) ([]*tarea.Tarea, error) {
	if len(claves) == 0 {
		return nil, nil
	}
	query, args, err := squirrel.Select(tareaColumns...).
		From("tareas").
		Where(squirrel.Eq{"id_tarea_planner": claves}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	var filas []*tarea.Tarea
	if err := pgxscan.Select(ctx, r.db, &filas, query, args...); err != nil {
		return nil, fmt.Errorf("scanning tareas: %w", err)
	}
	return filas, nil
}

// Upsert writes the batch keyed on the natural key. Conflicting rows keep
// their surrogate id and take the incoming comparable fields.
func (r *TareaRepo) Upsert(ctx context.Context, filas []*tarea.Tarea) error {
	if len(filas) == 0 {
		return nil
	}
	qb := squirrel.Insert("tareas").Columns(upsertColumns...)
	for _, t := range filas {
		etiquetas := t.Etiquetas
		if etiquetas == nil {
			etiquetas = tarea.Etiquetas{}
		}
		qb = qb.Values(
			t.IDTareaPlanner,
			t.NombreTarea,
			t.Descripcion,
			t.Colaborador,
			t.CreadoPor,
			t.Estado,
			t.Prioridad,
			t.FechaCreacion,
			t.FechaVencimiento,
			t.FechaFinalizacion,
			t.CompletadoPor,
			etiquetas,
			t.Checklist,
			t.Retrasada,
			t.NombreTablero,
		)
	}
	query, args, err := qb.Suffix(upsertSuffix).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return fmt.Errorf("building upsert query: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting tareas: %w", err)
	}
	return nil
}

// filtroPredicado translates the filter into a squirrel predicate.
func filtroPredicado(f *tarea.Filtro) squirrel.And {
	pred := squirrel.And{}
	if len(f.Estados) > 0 {
		pred = append(pred, squirrel.Eq{"estado": f.Estados})
	}
	if len(f.Prioridades) > 0 {
		pred = append(pred, squirrel.Eq{"prioridad": f.Prioridades})
	}
	if len(f.Colaboradores) > 0 {
		pred = append(pred, squirrel.Eq{"colaborador": f.Colaboradores})
	}
	if f.Tablero != "" {
		pred = append(pred, squirrel.Eq{"nombre_tablero": f.Tablero})
	}
	if f.CreacionDesde != nil {
		pred = append(pred, squirrel.GtOrEq{"fecha_creacion": f.CreacionDesde.Time})
	}
	if f.CreacionHasta != nil {
		pred = append(pred, squirrel.LtOrEq{"fecha_creacion": f.CreacionHasta.Time})
	}
	if f.VencimientoDesde != nil {
		pred = append(pred, squirrel.GtOrEq{"fecha_vencimiento": f.VencimientoDesde.Time})
	}
	if f.VencimientoHasta != nil {
		pred = append(pred, squirrel.LtOrEq{"fecha_vencimiento": f.VencimientoHasta.Time})
	}
	if f.FinalizacionDesde != nil {
		pred = append(pred, squirrel.GtOrEq{"fecha_finalizacion": f.FinalizacionDesde.Time})
	}
	if f.FinalizacionHasta != nil {
		pred = append(pred, squirrel.LtOrEq{"fecha_finalizacion": f.FinalizacionHasta.Time})
	}
	if f.Texto != "" {
		like := "%" + f.Texto + "%"
		pred = append(pred, squirrel.Or{
			squirrel.ILike{"nombre_tarea": like},
			squirrel.ILike{"descripcion": like},
		})
	}
	return pred
}

func filtroQueries(f *tarea.Filtro) (pageSQL string, pageArgs []any, countSQL string, countArgs []any, err error) {
	pred := filtroPredicado(f)
	page := squirrel.Select(tareaColumns...).
		From("tareas").
		OrderBy(f.OrderBy + " " + strings.ToUpper(f.OrderDir)).
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		PlaceholderFormat(squirrel.Dollar)
	count := squirrel.Select("count(*)").From("tareas").PlaceholderFormat(squirrel.Dollar)
	if len(pred) > 0 {
		page = page.Where(pred)
		count = count.Where(pred)
	}
	pageSQL, pageArgs, err = page.ToSql()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("building filter query: %w", err)
	}
	countSQL, countArgs, err = count.ToSql()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("building count query: %w", err)
	}
	return pageSQL, pageArgs, countSQL, countArgs, nil
}

// Filtrar returns the page of rows matching the filter plus the total match
// count, computed independently of pagination.
func (r *TareaRepo) Filtrar(ctx context.Context, f *tarea.Filtro) ([]*tarea.Tarea, int, error) {
	f.Normalizar()
	pageSQL, pageArgs, countSQL, countArgs, err := filtroQueries(f)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := pgxscan.Get(ctx, r.db, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("counting tareas: %w", err)
	}
	filas := []*tarea.Tarea{}
	if err := pgxscan.Select(ctx, r.db, &filas, pageSQL, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("scanning filtered tareas: %w", err)
	}
	return filas, total, nil
}

// facetColumns are the fields exposed through the facet endpoint.
var facetColumns = []string{"estado", "prioridad", "colaborador", "nombre_tablero", "etiquetas"}

type facetRow struct {
	Estado        *string         `db:"estado"`
	Prioridad     *string         `db:"prioridad"`
	Colaborador   *string         `db:"colaborador"`
	NombreTablero *string         `db:"nombre_tablero"`
	Etiquetas     tarea.Etiquetas `db:"etiquetas"`
}

// Facetas returns, per facet field, the sorted set of distinct non-empty
// values across all persisted rows. List-valued fields contribute their
// elements.
func (r *TareaRepo) Facetas(ctx context.Context) (map[string][]string, error) {
	query, args, err := squirrel.Select(facetColumns...).From("tareas").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building facet query: %w", err)
	}
	var filas []facetRow
	if err := pgxscan.Select(ctx, r.db, &filas, query, args...); err != nil {
		return nil, fmt.Errorf("scanning facets: %w", err)
	}
	return sortFacets(collectFacets(filas)), nil
}

// collectFacets accumulates the distinct non-empty values per facet field.
// List-valued fields contribute their elements.
func collectFacets(filas []facetRow) map[string]map[string]bool {
	sets := make(map[string]map[string]bool, len(facetColumns))
	for _, col := range facetColumns {
		sets[col] = make(map[string]bool)
	}
	for i := range filas {
		addFacet(sets["estado"], filas[i].Estado)
		addFacet(sets["prioridad"], filas[i].Prioridad)
		addFacet(sets["colaborador"], filas[i].Colaborador)
		addFacet(sets["nombre_tablero"], filas[i].NombreTablero)
		for _, etiqueta := range filas[i].Etiquetas {
			if trimmed := strings.TrimSpace(etiqueta); trimmed != "" {
				sets["etiquetas"][trimmed] = true
			}
		}
	}
	return sets
}

func addFacet(set map[string]bool, value *string) {
	if value == nil {
		return
	}
	if trimmed := strings.TrimSpace(*value); trimmed != "" {
		set[trimmed] = true
	}
}

func sortFacets(sets map[string]map[string]bool) map[string][]string {
	out := make(map[string][]string, len(sets))
	for col, set := range sets {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		out[col] = values
	}
	return out
}
