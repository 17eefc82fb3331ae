package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storeadmin/internal/domain"
	"github.com/phenrril/storeadmin/internal/ingest"
)

// ProcessResult es el resultado de procesar un archivo completo. Success es
// estricto: no hay éxito parcial.
type ProcessResult struct {
	Success bool
	Message string
	Counts  ingest.Counts
	Err     error
}

type IngestUC struct {
	Layout    ingest.Layout
	Validator *ingest.Validator
	Loader    *ingest.Loader
	Events    domain.EventPublisher
}

func NewIngestUC(store domain.IngestStore, opts domain.TxOptions, events domain.EventPublisher, vopts ...ingest.ValidatorOption) *IngestUC {
	return &IngestUC{
		Layout:    ingest.DefaultLayout(),
		Validator: ingest.NewValidator(vopts...),
		Loader:    ingest.NewLoader(store, opts),
		Events:    events,
	}
}

// Process parsea, valida y carga el libro. source solo se usa para logs y eventos.
func (uc *IngestUC) Process(ctx context.Context, source string, data []byte) ProcessResult {
	start := time.Now()
	batchID := uuid.New()
	logger := log.With().Str("lote", batchID.String()).Str("archivo", source).Logger()

	wb, err := ingest.Parse(data, uc.Layout)
	if err != nil {
		return uc.fail(logger, "Archivo inválido", err)
	}
	batch, err := uc.Validator.Validate(wb)
	if err != nil {
		return uc.fail(logger, "Error de validación en el archivo", err)
	}
	counts, err := uc.Loader.Load(ctx, batch)
	if err != nil {
		msg := "Error procesando el archivo"
		if ingest.KindOf(err) == ingest.KindReference {
			msg = "Referencia no encontrada"
		}
		return uc.fail(logger, msg, err)
	}

	logger.Info().
		Int("clientes", counts.Clients).
		Int("productos", counts.Products).
		Int("ordenes", counts.Orders).
		Int("detalles", counts.OrderLines).
		Dur("duracion", time.Since(start)).
		Msg("importación completada")

	if uc.Events != nil {
		ev := domain.IngestionEvent{
			BatchID:    batchID,
			Source:     source,
			Clients:    counts.Clients,
			Products:   counts.Products,
			Orders:     counts.Orders,
			OrderLines: counts.OrderLines,
			At:         time.Now().UTC(),
		}
		// El lote ya está confirmado; un fallo al publicar no lo revierte.
		if err := uc.Events.PublishIngestion(ctx, ev); err != nil {
			logger.Warn().Err(err).Msg("no se pudo publicar el evento de importación")
		}
	}

	return ProcessResult{Success: true, Message: "Archivo procesado correctamente", Counts: counts}
}

func (uc *IngestUC) fail(logger zerolog.Logger, msg string, err error) ProcessResult {
	ev := logger.Warn()
	if ingest.KindOf(err) == ingest.KindStore {
		ev = logger.Error()
	}
	ev.Err(err).Str("tipo", ingest.KindOf(err).String()).Msg(msg)
	return ProcessResult{Success: false, Message: msg, Err: err}
}
