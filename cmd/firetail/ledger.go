package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FireTail-io/firetail-go-lib/pkg/cli"
	"github.com/FireTail-io/firetail-go-lib/pkg/config"
	"github.com/FireTail-io/firetail-go-lib/pkg/ledger"
	"github.com/FireTail-io/firetail-go-lib/pkg/ledger/retention"
)

var ledgerFlags struct {
	since      string
	until      string
	status     string
	batchID    string
	limit      int
	offset     int
	format     string
	output     string
	days       int
	maxRecords int64
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the delivery ledger",
	Long: `Query and prune the delivery ledger.

The ledger records the outcome of every batch delivery: batch ID, trigger,
record count, attempts, last status code and error. Payloads are never stored.
Only the sqlite backend persists between processes.`,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List delivery outcomes",
	Long: `List delivery outcomes, newest first.

--since and --until accept an RFC3339 timestamp or a duration relative to now.

Examples:
  # Failures in the last hour
  firetail ledger list --since 1h --status failed

  # Export a day as CSV
  firetail ledger list --since 2026-03-01T00:00:00Z --until 2026-03-02T00:00:00Z --format csv -o deliveries.csv`,
	RunE: listLedger,
}

var ledgerPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply ledger retention now",
	Long: `Delete ledger entries older than the retention period, then trim the
ledger to the configured maximum size. Flags override the configured limits.

Examples:
  firetail ledger prune
  firetail ledger prune --days 7 --max-records 10000`,
	RunE: pruneLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd, ledgerPruneCmd)

	ledgerListCmd.Flags().StringVar(&ledgerFlags.since, "since", "", "only entries at or after this time (RFC3339 or duration)")
	ledgerListCmd.Flags().StringVar(&ledgerFlags.until, "until", "", "only entries at or before this time (RFC3339 or duration)")
	ledgerListCmd.Flags().StringVar(&ledgerFlags.status, "status", "", "filter by outcome: succeeded, failed")
	ledgerListCmd.Flags().StringVar(&ledgerFlags.batchID, "batch", "", "filter by batch ID")
	ledgerListCmd.Flags().IntVar(&ledgerFlags.limit, "limit", ledger.DefaultQueryLimit, "max results")
	ledgerListCmd.Flags().IntVar(&ledgerFlags.offset, "offset", 0, "pagination offset")
	ledgerListCmd.Flags().StringVar(&ledgerFlags.format, "format", "text", "output format: text, json, csv")
	ledgerListCmd.Flags().StringVarP(&ledgerFlags.output, "output", "o", "", "output file (default: stdout)")

	ledgerPruneCmd.Flags().IntVar(&ledgerFlags.days, "days", -1, "retention in days (default from config)")
	ledgerPruneCmd.Flags().Int64Var(&ledgerFlags.maxRecords, "max-records", -1, "maximum entries to keep (default from config)")
}

// entryTable renders ledger entries for the text and CSV formatters.
type entryTable []*ledger.Entry

func (t entryTable) Header() []string {
	return []string{"RECORDED", "BATCH", "TRIGGER", "STATUS", "RECORDS", "BYTES", "ATTEMPTS", "CODE", "DURATION", "ERROR"}
}

func (t entryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{
			e.RecordedAt.UTC().Format(time.RFC3339),
			e.BatchID,
			e.Trigger,
			e.Status,
			strconv.Itoa(e.Records),
			strconv.Itoa(e.Bytes),
			strconv.Itoa(e.Attempts),
			strconv.Itoa(e.StatusCode),
			e.Duration.Round(time.Millisecond).String(),
			e.Error,
		})
	}
	return rows
}

func openLedger(cfg *config.Config) (ledger.Storage, error) {
	if !cfg.Ledger.Enabled {
		return nil, cli.NewConfigError("ledger.enabled", "the delivery ledger is disabled")
	}
	if cfg.Ledger.Backend != "sqlite" {
		return nil, cli.NewConfigError("ledger.backend",
			fmt.Sprintf("backend %q only lives inside the running process; use sqlite to inspect it", cfg.Ledger.Backend))
	}
	return ledger.Open(cfg.Ledger)
}

func listLedger(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(ledgerFlags.format)
	if err != nil {
		return err
	}
	q, err := buildLedgerQuery(time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("ledger list", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if ledgerFlags.output != "" {
		f, err := os.Create(ledgerFlags.output)
		if err != nil {
			return cli.NewCommandError("ledger list", err)
		}
		defer f.Close()
		out = f
	}

	var data any = entryTable(entries)
	if format == cli.FormatJSON {
		data = entries
	}
	return cli.NewFormatter(format).FormatTo(out, data)
}

func buildLedgerQuery(now time.Time) (*ledger.Query, error) {
	q := &ledger.Query{
		Status:  ledgerFlags.status,
		BatchID: ledgerFlags.batchID,
		Limit:   ledgerFlags.limit,
		Offset:  ledgerFlags.offset,
	}
	switch q.Status {
	case "", "succeeded", "failed":
	default:
		return nil, cli.NewConfigError("status", fmt.Sprintf("unknown status %q (want succeeded or failed)", q.Status))
	}
	if ledgerFlags.since != "" {
		t, err := parseTimeFlag(ledgerFlags.since, now)
		if err != nil {
			return nil, cli.NewConfigError("since", err.Error())
		}
		q.Since = &t
	}
	if ledgerFlags.until != "" {
		t, err := parseTimeFlag(ledgerFlags.until, now)
		if err != nil {
			return nil, cli.NewConfigError("until", err.Error())
		}
		q.Until = &t
	}
	if q.Since != nil && q.Until != nil && q.Until.Before(*q.Since) {
		return nil, cli.NewConfigError("until", "must not be before --since")
	}
	return q, nil
}

// parseTimeFlag accepts RFC3339 or a duration meaning "that long ago".
func parseTimeFlag(value string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(strings.TrimPrefix(value, "-"))
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor a duration", value)
	}
	return now.Add(-d), nil
}

func pruneLedger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rc := retention.ConfigFrom(cfg.Ledger.Retention)
	if ledgerFlags.days >= 0 {
		rc.RetentionDays = ledgerFlags.days
	}
	if ledgerFlags.maxRecords >= 0 {
		rc.MaxRecords = ledgerFlags.maxRecords
	}
	rc.PruneSchedule = ""

	store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	deleted, err := retention.NewPruner(store, rc, nil, nil).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("ledger prune", err)
	}
	left, err := store.Count(ctx, nil)
	if err != nil {
		return cli.NewCommandError("ledger prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d entries (%d remaining)\n", deleted, left)
	return nil
}
