package importer

import "strings"

// aliasTable maps each canonical field to the header spellings seen in
// planner exports. Lookups go through normalizeHeader, so accent and
// punctuation variants collapse onto one entry.
var aliasTable = []struct {
	canon   string
	aliases []string
}{
	{"id_tarea_planner", []string{"Id. de tarea", "id de tarea", "id tarea", "id_tarea", "id"}},
	{"estado", []string{"Progreso", "Estado"}},
	{"fecha_creacion", []string{"Fecha de creación", "fecha de creacion"}},
	{"fecha_vencimiento", []string{"Fecha de vencimiento", "vencimiento", "due date"}},
	{"fecha_finalizacion", []string{"Fecha de finalización", "fecha de finalizacion"}},
	{"nombre_tarea", []string{"Nombre de la tarea", "titulo", "título"}},
	{"descripcion", []string{"Descripción", "description"}},
	{"colaborador", []string{"Asignado a"}},
	{"creado_por", []string{"Creado por"}},
	{"completado_por", []string{"Completado por"}},
	{"etiquetas", []string{"Etiquetas"}},
	{"checklist_items", []string{"Elementos de la lista de comprobación", "elementos de la lista de comprobacion", "checklist"}},
	{"prioridad", []string{"Priority", "Prioridad"}},
	{"nombre_tablero", []string{"Nombre del depósito", "Nombre del deposito", "tablero"}},
}

var sinonimos = buildSinonimos()

func buildSinonimos() map[string]string {
	m := make(map[string]string)
	for _, entry := range aliasTable {
		m[normalizeHeader(entry.canon)] = entry.canon
		for _, alias := range entry.aliases {
			m[normalizeHeader(alias)] = entry.canon
		}
	}
	return m
}

var acentos = strings.NewReplacer(
	"á", "a",
	"é", "e",
	"í", "i",
	"ó", "o",
	"ú", "u",
	"ñ", "n",
)

// normalizeHeader collapses header spelling variants: lowercase, NBSP to
// space, trim, accent stripping over the fixed vowel set, degree signs and
// periods removed, hyphens to spaces.
func normalizeHeader(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)
	s = acentos.Replace(s)
	s = strings.ReplaceAll(s, "°", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "-", " ")
	return s
}

// buildRenames maps each original header to its canonical field name.
// Headers with no synonym entry are absent from the result and keep their
// original spelling downstream, where the row builder ignores them.
func buildRenames(headers []string) map[string]string {
	renames := make(map[string]string)
	for _, h := range headers {
		if canon, ok := sinonimos[normalizeHeader(h)]; ok {
			renames[h] = canon
		}
	}
	return renames
}
