package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prospectlens/prospectlens/internal/config"
	"github.com/prospectlens/prospectlens/internal/core"
	"github.com/prospectlens/prospectlens/internal/core/dataset"
	"github.com/prospectlens/prospectlens/internal/core/engine"
	"github.com/prospectlens/prospectlens/internal/output"
)

// summaryFields are the canonical fields shown by list unless --all-columns.
var summaryFields = []string{
	config.FieldName,
	config.FieldRevenue,
	config.FieldEBITDA,
	config.FieldPriority,
	config.FieldStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prospects, optionally filtered",
	Example: `  prospectlens list
  prospectlens list --search acme
  prospectlens list --priority P1 -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		priority, _ := cmd.Flags().GetString("priority")
		allColumns, _ := cmd.Flags().GetBool("all-columns")

		formatter, err := formatterFor(cmd)
		if err != nil {
			return err
		}
		sess, err := commandSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		snap, err := sess.enricher.Load(cmd.Context())
		if err != nil {
			return err
		}

		filter := dataset.Filter{Search: search, Priority: priority}
		matches := filter.Apply(snap.Dataset, snap.Identity, sess.priorityColumn(snap))
		rows := make([]core.Record, 0, len(matches))
		for _, idx := range matches {
			rows = append(rows, snap.Dataset.Rows[idx])
		}

		list := &output.List{Columns: snap.Dataset.Columns, Rows: rows, Total: len(snap.Dataset.Rows)}
		if !allColumns {
			list.Columns = displayColumns(snap, summaryFields)
		}
		rendered, err := formatter.FormatList(list)
		if err != nil {
			return err
		}
		return emit(cmd, rendered)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one prospect with its financials, CRM follow-up and news",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := formatterFor(cmd)
		if err != nil {
			return err
		}
		sess, err := commandSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		snap, err := sess.enricher.Load(cmd.Context())
		if err != nil {
			return err
		}
		idx, err := snap.Find(args[0])
		if err != nil {
			return err
		}
		rendered, err := formatter.FormatDetail(detailOf(snap, snap.Dataset.Rows[idx]))
		if err != nil {
			return err
		}
		return emit(cmd, rendered)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Edit CRM fields of a prospect",
	Long: `Edit fields of one prospect by canonical field name. An empty value clears
the cell. Manual edits are not rate limited.`,
	Example: `  prospectlens update "Acme" --set status="RDV fixé" --set comments="Rappeler en mars"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assignments, _ := cmd.Flags().GetStringArray("set")
		values, err := parseAssignments(assignments)
		if err != nil {
			return err
		}
		if status, ok := values[config.FieldStatus]; ok && status != "" {
			if !knownStatus(appConfig.CRM.Statuses, status) {
				return fmt.Errorf("unknown status %q (allowed: %s)", status, strings.Join(appConfig.CRM.Statuses, ", "))
			}
		}

		formatter, err := formatterFor(cmd)
		if err != nil {
			return err
		}
		sess, err := commandSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		result, err := sess.enricher.Update(cmd.Context(), args[0], values)
		if err != nil {
			return err
		}
		rendered, err := formatter.FormatResult(result)
		if err != nil {
			return err
		}
		return emit(cmd, rendered)
	},
}

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Show how sheet headers resolve to fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := formatterFor(cmd)
		if err != nil {
			return err
		}
		sess, err := commandSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		snap, err := sess.enricher.Load(cmd.Context())
		if err != nil {
			return err
		}
		rendered, err := formatter.FormatColumns(&output.ColumnReport{
			Columns: snap.Dataset.Columns,
			Mapping: snap.Resolution.Mapping,
			Missing: snap.Resolution.Missing,
		})
		if err != nil {
			return err
		}
		return emit(cmd, rendered)
	},
}

func init() {
	rootCmd.AddCommand(listCmd, showCmd, updateCmd, columnsCmd)

	listCmd.Flags().String("search", "", "case-insensitive substring of the company name")
	listCmd.Flags().String("priority", "", "exact priority value (\"all\" disables the filter)")
	listCmd.Flags().Bool("all-columns", false, "show every sheet column")

	updateCmd.Flags().StringArray("set", nil, "field=value assignment (repeatable)")
	_ = updateCmd.MarkFlagRequired("set")
}

// displayColumns maps fields to the sheet columns they resolve to, skipping
// fields the sheet lacks.
func displayColumns(snap *engine.Snapshot, fields []string) []string {
	columns := make([]string, 0, len(fields))
	for _, field := range fields {
		if column, ok := snap.Resolution.Mapping.Column(field); ok {
			columns = append(columns, column)
		}
	}
	if len(columns) == 0 {
		return snap.Dataset.Columns
	}
	return columns
}

func detailOf(snap *engine.Snapshot, record core.Record) *output.Detail {
	fields := make(map[string]string, len(snap.Resolution.Mapping))
	for field, column := range snap.Resolution.Mapping {
		fields[field] = record.Get(column)
	}
	return &output.Detail{
		Subject: record.Get(snap.Identity),
		Fields:  fields,
		Record:  record,
	}
}

func parseAssignments(assignments []string) (map[string]string, error) {
	values := make(map[string]string, len(assignments))
	for _, raw := range assignments {
		field, value, ok := strings.Cut(raw, "=")
		field = core.NormalizeField(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid assignment %q (want field=value)", raw)
		}
		values[field] = strings.TrimSpace(value)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no values to update")
	}
	return values, nil
}

func knownStatus(statuses []string, status string) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, candidate := range statuses {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(status)) {
			return true
		}
	}
	return false
}
