package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/coverage"
	"github.com/sells-group/coverage-cli/internal/db"
	"github.com/sells-group/coverage-cli/internal/load"
	"github.com/sells-group/coverage-cli/internal/source"
)

var (
	loadCollection string
	loadRegion     string
	loadAppend     bool
	loadBatchSize  int
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Import a point collection or region boundary",
	Long: "Imports points from a CSV, GeoJSON or shapefile into a collection, or a boundary into the regions table " +
		"(--region). PostGIS tables are filled with COPY; with source.driver=sqlite the SQLite database is used.",
	Example: `  coverage load data/towers.csv
  coverage load data/settlements.geojson --collection population_points
  coverage load data/tamil_nadu.shp --region "Tamil Nadu"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path := args[0]
		log := zap.L().With(zap.String("command", "load"), zap.String("file", path))
		start := time.Now()

		if err := cfg.Validate("load"); err != nil {
			return err
		}
		sqlite := cfg.Source.Driver == "sqlite"

		if loadRegion != "" {
			mp, err := source.ReadRegionFile(path)
			if err != nil {
				return err
			}
			if sqlite {
				store, err := source.NewSQLite(cfg.Source.SQLitePath)
				if err != nil {
					return err
				}
				defer store.Close() //nolint:errcheck
				if err := load.SQLiteRegion(ctx, store, loadRegion, mp); err != nil {
					return err
				}
			} else {
				pool, err := db.Connect(ctx, cfg.Source.DatabaseURL, db.PoolConfig{MaxConns: cfg.Source.MaxConns, MinConns: cfg.Source.MinConns})
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := load.PostgresRegion(ctx, pool, cfg.Source.RegionsTable, loadRegion, mp); err != nil {
					return err
				}
			}
			log.Info("region loaded",
				zap.String("region", loadRegion),
				zap.Int("polygons", mp.NumPolygons()),
				zap.Duration("elapsed", time.Since(start)),
			)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded region %q (%d polygons)\n", loadRegion, mp.NumPolygons())
			return nil
		}

		collection := loadCollection
		if collection == "" {
			collection = collectionFromPath(path)
		}
		if !db.ValidIdentifier(collection) {
			return eris.Wrapf(coverage.ErrInvalidParameter, "invalid collection name %q (use --collection)", collection)
		}

		points, err := source.ReadPointsFile(path)
		if err != nil {
			return err
		}

		var n int64
		if sqlite {
			store, err := source.NewSQLite(cfg.Source.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck
			n, err = load.SQLitePoints(ctx, store, collection, points)
			if err != nil {
				return err
			}
		} else {
			pool, err := db.Connect(ctx, cfg.Source.DatabaseURL, db.PoolConfig{MaxConns: cfg.Source.MaxConns, MinConns: cfg.Source.MinConns})
			if err != nil {
				return err
			}
			defer pool.Close()
			n, err = load.PostgresPoints(ctx, pool, cfg.Source.PointsSchema, collection, points,
				load.PointOptions{Replace: !loadAppend, BatchSize: loadBatchSize})
			if err != nil {
				return err
			}
		}

		log.Info("points loaded",
			zap.String("collection", collection),
			zap.Int64("rows", n),
			zap.Duration("elapsed", time.Since(start)),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d points into %s\n", n, collection)
		return nil
	},
}

// collectionFromPath derives a collection name from a file name:
// "data/Cell Towers.csv" becomes "cell_towers".
func collectionFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.ToLower(strings.TrimSpace(base))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}

func init() {
	loadCmd.Flags().StringVar(&loadCollection, "collection", "", "target collection (default: file name)")
	loadCmd.Flags().StringVar(&loadRegion, "region", "", "load the file as the boundary of this region")
	loadCmd.Flags().BoolVar(&loadAppend, "append", false, "append to the PostGIS table instead of replacing it")
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 0, "COPY batch size (default 50000)")
	rootCmd.AddCommand(loadCmd)
}
