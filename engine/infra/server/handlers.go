package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ingenieria/tareas-api/engine/importer"
	"github.com/ingenieria/tareas-api/engine/tarea"
	"github.com/ingenieria/tareas-api/pkg/logger"
)

// Error codes surfaced in client-error responses.
const (
	errBadRequestCode = "BAD_REQUEST"
	errInternalCode   = "INTERNAL_ERROR"
)

func respondError(c *gin.Context, status int, code, message string, err error) {
	body := gin.H{"code": code, "message": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(status, gin.H{"error": body})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) uploadTareas(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, errBadRequestCode, "missing multipart file field", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, errBadRequestCode, "cannot open uploaded file", err)
		return
	}
	defer file.Close()

	log.Info("archivo recibido", "filename", fileHeader.Filename, "size", fileHeader.Size)
	tareas, err := importer.Procesar(ctx, file)
	if err != nil {
		respondError(c, http.StatusBadRequest, errBadRequestCode, "cannot parse workbook", err)
		return
	}

	insertadas, actualizadas, err := s.rec.Reconcile(ctx, tareas)
	if err != nil {
		respondError(c, http.StatusInternalServerError, errInternalCode, "reconciliation failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"procesadas":      len(tareas),
		"insertadas":      insertadas,
		"actualizadas":    actualizadas,
		"tareas_cargadas": insertadas + actualizadas,
	})
}

// filtroParams is the raw query-string shape; validation happens at this
// boundary so the core only ever sees well-formed filters.
type filtroParams struct {
	Estado            string `form:"estado"`
	Prioridad         string `form:"prioridad"`
	Colaborador       string `form:"colaborador"`
	Tablero           string `form:"tablero"`
	Desde             string `form:"desde"              binding:"omitempty,datetime=2006-01-02"`
	Hasta             string `form:"hasta"              binding:"omitempty,datetime=2006-01-02"`
	VencimientoDesde  string `form:"vencimiento_desde"  binding:"omitempty,datetime=2006-01-02"`
	VencimientoHasta  string `form:"vencimiento_hasta"  binding:"omitempty,datetime=2006-01-02"`
	FinalizacionDesde string `form:"finalizacion_desde" binding:"omitempty,datetime=2006-01-02"`
	FinalizacionHasta string `form:"finalizacion_hasta" binding:"omitempty,datetime=2006-01-02"`
	Q                 string `form:"q"`
	OrderBy           string `form:"order_by"`
	OrderDir          string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Limit             int    `form:"limit"     binding:"omitempty,min=1,max=1000"`
	Offset            int    `form:"offset"    binding:"omitempty,min=0"`
}

// toFiltro assumes the params passed binding validation, so the date fields
// are either blank or already in YYYY-MM-DD form.
func (p *filtroParams) toFiltro() *tarea.Filtro {
	f := &tarea.Filtro{
		Estados:           splitCSV(p.Estado),
		Prioridades:       splitCSV(p.Prioridad),
		Colaboradores:     splitCSV(p.Colaborador),
		Tablero:           strings.TrimSpace(p.Tablero),
		Texto:             strings.TrimSpace(p.Q),
		OrderBy:           p.OrderBy,
		OrderDir:          p.OrderDir,
		Limit:             p.Limit,
		Offset:            p.Offset,
		CreacionDesde:     parseFechaParam(p.Desde),
		CreacionHasta:     parseFechaParam(p.Hasta),
		VencimientoDesde:  parseFechaParam(p.VencimientoDesde),
		VencimientoHasta:  parseFechaParam(p.VencimientoHasta),
		FinalizacionDesde: parseFechaParam(p.FinalizacionDesde),
		FinalizacionHasta: parseFechaParam(p.FinalizacionHasta),
	}
	f.Normalizar()
	return f
}

func (s *Server) tareasFiltradas(c *gin.Context) {
	var params filtroParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, http.StatusBadRequest, errBadRequestCode, "invalid filter parameters", err)
		return
	}
	filas, total, err := s.consultas.Filtrar(c.Request.Context(), params.toFiltro())
	if err != nil {
		respondError(c, http.StatusInternalServerError, errInternalCode, "query failed", err)
		return
	}
	c.Header("X-Total-Count", strconv.Itoa(total))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "total": total, "data": filas})
}

func (s *Server) facetas(c *gin.Context) {
	data, err := s.consultas.Facetas(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, errInternalCode, "facet query failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": data})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseFechaParam(raw string) *tarea.Fecha {
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil
	}
	f := tarea.FechaDe(t)
	return &f
}
