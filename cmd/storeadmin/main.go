package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phenrril/storeadmin/internal/app"
	"github.com/phenrril/storeadmin/internal/config"
	"github.com/phenrril/storeadmin/internal/ingest"
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		zlog.Error().Err(err).Msg("storeadmin")
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg *config.Config
	root := &cobra.Command{
		Use:           "storeadmin",
		Short:         "Carga masiva de clientes, productos y órdenes desde Excel",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(c)
			cfg = c
			return nil
		},
	}
	cfgFn := func() *config.Config { return cfg }

	root.AddCommand(serveCmd(cfgFn), migrateCmd(cfgFn), ingestCmd(cfgFn), templateCmd())
	return root
}

func setupLogger(c *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if c.IsDev() {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		zlog.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

func serveCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			application, err := app.NewApp(c)
			if err != nil {
				return fmt.Errorf("failed to create app: %w", err)
			}
			defer application.Close()
			if err := application.Migrate(); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := &http.Server{
				Addr:              ":" + c.Port,
				Handler:           application.HTTPHandler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				zlog.Info().Str("port", c.Port).Str("driver", c.DBDriver).Msg("servidor escuchando")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				zlog.Info().Msg("apagando servidor")
				return server.Shutdown(sctx)
			})
			return g.Wait()
		},
	}
}

func migrateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Crea o actualiza el esquema de la base",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApp(cfg())
			if err != nil {
				return err
			}
			defer application.Close()
			if err := application.Migrate(); err != nil {
				return err
			}
			zlog.Info().Msg("migración completa")
			return nil
		},
	}
}

func ingestCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <archivo.xlsx>",
		Short: "Procesa un libro Excel sin pasar por HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			application, err := app.NewApp(cfg())
			if err != nil {
				return err
			}
			defer application.Close()
			if err := application.Migrate(); err != nil {
				return err
			}

			res := application.Ingest(cmd.Context(), filepath.Base(args[0]), data)
			out := map[string]any{"success": res.Success, "message": res.Message}
			if res.Success {
				out["stats"] = res.Counts
			} else {
				out["error"] = res.Err.Error()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if !res.Success {
				return res.Err
			}
			return nil
		},
	}
}

func templateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <salida.xlsx>",
		Short: "Genera la plantilla de carga vacía",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := ingest.WriteTemplate(f, ingest.DefaultLayout()); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
}
