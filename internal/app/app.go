package app

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/phenrril/storeadmin/internal/adapters/events"
	"github.com/phenrril/storeadmin/internal/adapters/httpserver"
	"github.com/phenrril/storeadmin/internal/adapters/repo/gormrepo"
	"github.com/phenrril/storeadmin/internal/adapters/repo/memory"
	"github.com/phenrril/storeadmin/internal/config"
	"github.com/phenrril/storeadmin/internal/domain"
	"github.com/phenrril/storeadmin/internal/ingest"
	"github.com/phenrril/storeadmin/internal/usecase"
)

type App struct {
	Cfg       *config.Config
	DB        *gorm.DB
	Counter   domain.Counter
	IngestUC  *usecase.IngestUC
	ProductUC *usecase.ProductUC
	ClientUC  *usecase.ClientUC
	OrderUC   *usecase.OrderUC

	closers []io.Closer
}

// NewApp conecta el store elegido por DB_DRIVER y arma los casos de uso.
// Con driver "memory" no hay base de datos y DB queda en nil.
func NewApp(cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	var (
		store    domain.IngestStore
		clients  domain.ClientRepo
		products domain.ProductRepo
		orders   domain.OrderRepo
	)
	if cfg.DBDriver == "memory" {
		m := memory.New()
		store, clients, products, orders, a.Counter = m, m.Clients(), m.Products(), m.Orders(), m
	} else {
		db, err := gormrepo.Open(cfg.DBDriver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.DB = db
		s := gormrepo.NewStore(db)
		store, a.Counter = s, s
		clients = gormrepo.NewClientRepo(db)
		products = gormrepo.NewProductRepo(db)
		orders = gormrepo.NewOrderRepo(db)
	}

	var pub domain.EventPublisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		a.closers = append(a.closers, kp)
		pub = kp
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("eventos de importación habilitados")
	}

	a.IngestUC = usecase.NewIngestUC(store, domain.TxOptions{
		Timeout:        cfg.TxTimeout,
		AcquireTimeout: cfg.TxAcquireTimeout,
	}, pub, ingest.WithDefaultCurrency(cfg.DefaultCurrency))
	a.ProductUC = &usecase.ProductUC{Products: products}
	a.ClientUC = &usecase.ClientUC{Clients: clients}
	a.OrderUC = &usecase.OrderUC{Orders: orders}
	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.IngestUC, a.ProductUC, a.ClientUC, a.OrderUC, a.Counter, httpserver.Options{
		MaxUploadBytes:  a.Cfg.MaxUploadBytes,
		UploadPerMinute: a.Cfg.UploadPerMinute,
	})
}

// Migrate crea o actualiza el esquema. No hace nada con el store en memoria.
func (a *App) Migrate() error {
	if a.DB == nil {
		return nil
	}
	return gormrepo.Migrate(a.DB)
}

func (a *App) Ingest(ctx context.Context, source string, data []byte) usecase.ProcessResult {
	return a.IngestUC.Process(ctx, source, data)
}

func (a *App) Close() error {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrando recurso")
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
