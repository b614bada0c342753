// Package reconciler diff-merges freshly parsed task records against the
// persisted set: unseen natural keys become inserts, changed rows become
// updates carrying the surrogate id forward, and content-identical rows are
// never written.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ingenieria/tareas-api/engine/tarea"
	"github.com/ingenieria/tareas-api/pkg/logger"
)

const (
	// fetchChunkSize bounds the IN-list of the existing-row fetch.
	fetchChunkSize = 400
	// upsertBatchSize bounds each batched write.
	upsertBatchSize = 500

	maxRetries  = 3
	backoffBase = 500 * time.Millisecond
)

// Repository is the persistence port the reconciler writes through.
type Repository interface {
	// ListarPorClaves returns the persisted rows whose natural key is in
	// claves, including surrogate ids and all comparable fields.
	ListarPorClaves(ctx context.Context, claves []string) ([]*tarea.Tarea, error)
	// Upsert writes the batch keyed on the natural key.
	Upsert(ctx context.Context, filas []*tarea.Tarea) error
}

type Reconciler struct {
	repo Repository
	// newBackoff is swapped in tests to avoid real sleeps.
	newBackoff func() retry.Backoff
}

func New(repo Repository) *Reconciler {
	return &Reconciler{
		repo: repo,
		newBackoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewExponential(backoffBase))
		},
	}
}

// Reconcile classifies nuevas against the persisted set and writes the
// deltas. It returns how many records were inserted and updated; no-ops are
// neither counted nor written. Duplicate natural keys within one upload
// collapse to the last occurrence.
func (r *Reconciler) Reconcile(ctx context.Context, nuevas []*tarea.Tarea) (int, int, error) {
	log := logger.FromContext(ctx)
	nuevas = dedupUltima(nuevas)
	if len(nuevas) == 0 {
		return 0, 0, nil
	}

	claves := make([]string, 0, len(nuevas))
	for _, t := range nuevas {
		claves = append(claves, t.IDTareaPlanner)
	}
	existentes, err := r.buscarExistentes(ctx, claves)
	if err != nil {
		return 0, 0, err
	}

	var insertadas, actualizadas int
	aUpsert := make([]*tarea.Tarea, 0, len(nuevas))
	for _, nueva := range nuevas {
		actual, ok := existentes[nueva.IDTareaPlanner]
		if !ok {
			insertadas++
			aUpsert = append(aUpsert, nueva)
			continue
		}
		if iguales(nueva, actual) {
			continue
		}
		nueva.ID = actual.ID
		actualizadas++
		aUpsert = append(aUpsert, nueva)
	}

	for _, lote := range chunk(aUpsert, upsertBatchSize) {
		if err := r.conReintentos(ctx, func(ctx context.Context) error {
			return r.repo.Upsert(ctx, lote)
		}); err != nil {
			return 0, 0, fmt.Errorf("upserting batch of %d: %w", len(lote), err)
		}
	}

	log.Info("reconciliación completada",
		"procesadas", len(nuevas),
		"insertadas", insertadas,
		"actualizadas", actualizadas,
		"sin_cambios", len(nuevas)-len(aUpsert),
	)
	return insertadas, actualizadas, nil
}

// buscarExistentes fetches persisted rows for the given natural keys in
// bounded chunks and indexes them by key.
func (r *Reconciler) buscarExistentes(ctx context.Context, claves []string) (map[string]*tarea.Tarea, error) {
	existentes := make(map[string]*tarea.Tarea, len(claves))
	for _, grupo := range chunk(claves, fetchChunkSize) {
		var filas []*tarea.Tarea
		if err := r.conReintentos(ctx, func(ctx context.Context) error {
			var fetchErr error
			filas, fetchErr = r.repo.ListarPorClaves(ctx, grupo)
			return fetchErr
		}); err != nil {
			return nil, fmt.Errorf("fetching existing rows: %w", err)
		}
		for _, fila := range filas {
			existentes[fila.IDTareaPlanner] = fila
		}
	}
	return existentes, nil
}

func (r *Reconciler) conReintentos(ctx context.Context, fn func(context.Context) error) error {
	return retry.Do(ctx, r.newBackoff(), func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// dedupUltima collapses duplicate natural keys, keeping the last occurrence
// of each while preserving first-seen order.
func dedupUltima(nuevas []*tarea.Tarea) []*tarea.Tarea {
	indice := make(map[string]int, len(nuevas))
	out := make([]*tarea.Tarea, 0, len(nuevas))
	for _, t := range nuevas {
		if pos, ok := indice[t.IDTareaPlanner]; ok {
			out[pos] = t
			continue
		}
		indice[t.IDTareaPlanner] = len(out)
		out = append(out, t)
	}
	return out
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
