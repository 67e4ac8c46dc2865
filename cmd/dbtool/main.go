package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"safe-route-service/internal/adapters/repositories"
	"safe-route-service/internal/config"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/db"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "dbtool",
	Short:         "Manage the crime dataset database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Bootstrap()
		if err != nil {
			return eris.Wrap(err, "bootstrap")
		}
		if err := c.Validate(cmd.Name()); err != nil {
			return err
		}
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		zap.L().Info("schema ready", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

var (
	importName        string
	importWeightField string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a crime dataset from a .csv or .shp file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		name := importName
		if name == "" {
			name = filepath.Base(path)
		}

		incidents, err := readIncidents(path, importWeightField)
		if err != nil {
			return err
		}

		conn, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		repo := repositories.NewSQLCrimeRepository(conn, cfg.Store.Driver)
		stored, err := repo.ReplaceDataset(ctx, name, incidents)
		if err != nil {
			return err
		}

		zap.L().Info("dataset imported",
			zap.String("dataset", name),
			zap.String("file", path),
			zap.Int("incidents", stored),
		)
		return nil
	},
}

func openDB(ctx context.Context) (*sql.DB, error) {
	conn, err := db.Open(cfg.Store.Driver, cfg.Store.DSN())
	if err != nil {
		return nil, err
	}
	if err := repositories.InitSchema(ctx, conn, cfg.Store.Driver); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// readIncidents picks the reader by file extension.
func readIncidents(path, weightField string) ([]domain.CrimeIncident, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "import: open %s", path)
		}
		defer f.Close()
		return repositories.ReadCSV(f)
	case ".shp":
		return repositories.ReadShapefile(path, weightField)
	default:
		return nil, eris.Errorf("import: unsupported file type %q (want .csv or .shp)", filepath.Ext(path))
	}
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "dataset name (default: file name)")
	importCmd.Flags().StringVar(&importWeightField, "weight-field", "", "shapefile attribute holding the incident weight")
	rootCmd.AddCommand(initCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		_ = zap.L().Sync()
		os.Exit(1)
	}
}
