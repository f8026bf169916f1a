package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/dataset"
	"github.com/prospectlens/prospectlens/internal/observability"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import a delimited sheet into the libsql store",
	Long: `Copy a delimited prospect sheet into the libsql store, replacing the stored
table. Set sheet.backend=libsql afterwards to work from the store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		table, _ := cmd.Flags().GetString("table")
		table = tableName(table, args[0])

		src, err := csvSource(args[0])
		if err != nil {
			return err
		}
		db, err := openStore(ctx, appConfig)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck

		from := &singleFileStore{inner: src.store, table: src.table}
		if current, err := db.ReadAll(ctx, table); err == nil {
			from.version = current.Version
		}
		ds, err := dataset.Import(ctx, from, db, table)
		if err != nil {
			return err
		}
		observability.Logger().Info("Sheet imported",
			zap.String("file", args[0]),
			zap.String("table", table),
			zap.Int("rows", len(ds.Rows)),
			zap.Int64("version", ds.Version))
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s\n", len(ds.Rows), table)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file.csv]",
	Short: "Export a stored sheet to a delimited file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		table, _ := cmd.Flags().GetString("table")
		if strings.TrimSpace(table) == "" {
			table = appConfig.Sheet.Table
		}

		target := sanitizeFilename(table) + ".csv"
		if len(args) == 1 {
			target = args[0]
		}

		db, err := openStore(ctx, appConfig)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck

		ds, err := db.ReadAll(ctx, table)
		if err != nil {
			return err
		}
		sink, err := openSink(target)
		if err != nil {
			return err
		}
		if err := dataset.Encode(sink.writer, ds, appConfig.Sheet.DelimiterRune()); err != nil {
			_ = sink.close()
			return err
		}
		if err := sink.close(); err != nil {
			return err
		}
		if sink.path != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(ds.Rows), sink.path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd, exportCmd)

	importCmd.Flags().String("table", "", "stored table name (default: sheet.table)")
	exportCmd.Flags().String("table", "", "stored table name (default: sheet.table)")
}

type csvFile struct {
	store *dataset.CSVStore
	table string
}

// csvSource addresses path as a table of a CSVStore rooted at its directory.
func csvSource(path string) (*csvFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &csvFile{
		store: dataset.NewCSVStore(filepath.Dir(path), appConfig.Sheet.DelimiterRune()),
		table: filepath.Base(path),
	}, nil
}

// singleFileStore reads one fixed table whatever name is asked for, so an
// arbitrary file can be imported under the configured table name. version is
// stamped on the read dataset so optimistic stores accept the replacement.
type singleFileStore struct {
	inner   dataset.TableStore
	table   string
	version int64
}

func (s *singleFileStore) ReadAll(ctx context.Context, _ string) (*core.Dataset, error) {
	ds, err := s.inner.ReadAll(ctx, s.table)
	if err != nil {
		return nil, err
	}
	ds.Version = s.version
	return ds, nil
}

func (s *singleFileStore) WriteAll(ctx context.Context, _ string, ds *core.Dataset) error {
	return s.inner.WriteAll(ctx, s.table, ds)
}

func tableName(flag, path string) string {
	if name := strings.TrimSpace(flag); name != "" {
		return name
	}
	if appConfig != nil && strings.TrimSpace(appConfig.Sheet.Table) != "" {
		return appConfig.Sheet.Table
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
