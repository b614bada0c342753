package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ingenieria/tareas-api/engine/tarea"
	"github.com/ingenieria/tareas-api/pkg/config"
	"github.com/ingenieria/tareas-api/pkg/logger"
)

type fakeReconciliador struct {
	recibidas    []*tarea.Tarea
	insertadas   int
	actualizadas int
	err          error
}

func (f *fakeReconciliador) Reconcile(_ context.Context, nuevas []*tarea.Tarea) (int, int, error) {
	f.recibidas = nuevas
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.insertadas, f.actualizadas, nil
}

type fakeConsultas struct {
	filtro  *tarea.Filtro
	filas   []*tarea.Tarea
	total   int
	facetas map[string][]string
	err     error
}

func (f *fakeConsultas) Filtrar(_ context.Context, filtro *tarea.Filtro) ([]*tarea.Tarea, int, error) {
	f.filtro = filtro
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.filas, f.total, nil
}

func (f *fakeConsultas) Facetas(_ context.Context) (map[string][]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facetas, nil
}

func newTestServer(rec *fakeReconciliador, consultas *fakeConsultas) *Server {
	cfg := config.Default()
	return New(cfg, logger.NewLogger(logger.TestConfig()), rec, consultas)
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func uploadBody(t *testing.T, rows [][]any) (*bytes.Buffer, string) {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &row))
	}
	content, err := wb.WriteToBuffer()
	require.NoError(t, err)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "tareas.xlsx")
	require.NoError(t, err)
	_, err = part.Write(content.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealth(t *testing.T) {
	t.Run("Should report ok", func(t *testing.T) {
		s := newTestServer(&fakeReconciliador{}, &fakeConsultas{})

		w := doRequest(s, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})
}

func TestUploadTareas(t *testing.T) {
	t.Run("Should parse the workbook and return reconciliation counts", func(t *testing.T) {
		rec := &fakeReconciliador{insertadas: 2, actualizadas: 1}
		s := newTestServer(rec, &fakeConsultas{})
		body, contentType := uploadBody(t, [][]any{
			{"Id. de tarea", "Progreso"},
			{"T-1", "Completado"},
			{"T-2", "No iniciado"},
			{"T-3", "En curso"},
		})

		req := httptest.NewRequest(http.MethodPost, "/upload-tareas", body)
		req.Header.Set("Content-Type", contentType)
		w := doRequest(s, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp["status"])
		assert.EqualValues(t, 3, resp["procesadas"])
		assert.EqualValues(t, 2, resp["insertadas"])
		assert.EqualValues(t, 1, resp["actualizadas"])
		assert.EqualValues(t, 3, resp["tareas_cargadas"])
		assert.Len(t, rec.recibidas, 3)
	})

	t.Run("Should reject requests without a file field", func(t *testing.T) {
		s := newTestServer(&fakeReconciliador{}, &fakeConsultas{})

		req := httptest.NewRequest(http.MethodPost, "/upload-tareas", bytes.NewBufferString("nada"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		w := doRequest(s, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should reject files that are not workbooks", func(t *testing.T) {
		s := newTestServer(&fakeReconciliador{}, &fakeConsultas{})
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "notas.txt")
		require.NoError(t, err)
		_, err = part.Write([]byte("esto no es un xlsx"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/upload-tareas", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		w := doRequest(s, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should surface reconciliation failures as server errors", func(t *testing.T) {
		rec := &fakeReconciliador{err: fmt.Errorf("backend down")}
		s := newTestServer(rec, &fakeConsultas{})
		body, contentType := uploadBody(t, [][]any{
			{"Id. de tarea"},
			{"T-1"},
		})

		req := httptest.NewRequest(http.MethodPost, "/upload-tareas", body)
		req.Header.Set("Content-Type", contentType)
		w := doRequest(s, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestTareasFiltradas(t *testing.T) {
	t.Run("Should return page data with total count header", func(t *testing.T) {
		nombre := "Cambiar rodamiento"
		consultas := &fakeConsultas{
			filas: []*tarea.Tarea{{IDTareaPlanner: "T-1", NombreTarea: &nombre, Colaborador: "Ana"}},
			total: 41,
		}
		s := newTestServer(&fakeReconciliador{}, consultas)

		w := doRequest(s, httptest.NewRequest(http.MethodGet, "/tareas-filtradas?estado=Implementado,No%20efectivo&limit=10", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "41", w.Header().Get("X-Total-Count"))
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.EqualValues(t, 41, resp["total"])
		require.NotNil(t, consultas.filtro)
		assert.Equal(t, []string{"Implementado", "No efectivo"}, consultas.filtro.Estados)
		assert.Equal(t, 10, consultas.filtro.Limit)
	})

	t.Run("Should fall back silently for non allow-listed order_by", func(t *testing.T) {
		consultas := &fakeConsultas{}
		s := newTestServer(&fakeReconciliador{}, consultas)

		w := doRequest(s, httptest.NewRequest(http.MethodGet, "/tareas-filtradas?order_by=checklist", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, consultas.filtro)
		assert.Equal(t, tarea.OrdenPorDefecto, consultas.filtro.OrderBy)
	})

	t.Run("Should reject invalid order_dir", func(t *testing.T) {
		s := newTestServer(&fakeReconciliador{}, &fakeConsultas{})

		w := doRequest(s, httptest.NewRequest(http.MethodGet, "/tareas-filtradas?order_dir=sideways", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should reject malformed dates", func(t *testing.T) {
		s := newTestServer(&fakeReconciliador{}, &fakeConsultas{})

		w := doRequest(s, httptest.NewRequest(http.MethodGet, "/tareas-filtradas?desde=03/05/2024", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should reject out-of-range pagination", func(t *testing.T) {
		s := newTestServer(&fakeReconciliador{}, &fakeConsultas{})

		assert.Equal(t, http.StatusBadRequest,
			doRequest(s, httptest.NewRequest(http.MethodGet, "/tareas-filtradas?limit=5000", nil)).Code)
		assert.Equal(t, http.StatusBadRequest,
			doRequest(s, httptest.NewRequest(http.MethodGet, "/tareas-filtradas?offset=-1", nil)).Code)
	})

	t.Run("Should pass date ranges through to the filter", func(t *testing.T) {
		consultas := &fakeConsultas{}
		s := newTestServer(&fakeReconciliador{}, consultas)

		w := doRequest(s, httptest.NewRequest(
			http.MethodGet,
			"/tareas-filtradas?desde=2024-01-01&vencimiento_hasta=2024-06-30",
			nil,
		))

		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, consultas.filtro.CreacionDesde)
		assert.Equal(t, "2024-01-01", consultas.filtro.CreacionDesde.ISO())
		require.NotNil(t, consultas.filtro.VencimientoHasta)
		assert.Equal(t, "2024-06-30", consultas.filtro.VencimientoHasta.ISO())
	})
}

func TestFacetas(t *testing.T) {
	t.Run("Should return facet values per field", func(t *testing.T) {
		consultas := &fakeConsultas{facetas: map[string][]string{
			"estado":    {"En curso", "Implementado"},
			"etiquetas": {"mecánica", "urgente"},
		}}
		s := newTestServer(&fakeReconciliador{}, consultas)

		w := doRequest(s, httptest.NewRequest(http.MethodGet, "/facetas", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Status string              `json:"status"`
			Data   map[string][]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, []string{"En curso", "Implementado"}, resp.Data["estado"])
	})
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("Should allow configured origins and answer preflight", func(t *testing.T) {
		s := newTestServer(&fakeReconciliador{}, &fakeConsultas{})

		req := httptest.NewRequest(http.MethodOptions, "/tareas-filtradas", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := doRequest(s, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Should not echo unknown origins", func(t *testing.T) {
		s := newTestServer(&fakeReconciliador{}, &fakeConsultas{})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := doRequest(s, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
