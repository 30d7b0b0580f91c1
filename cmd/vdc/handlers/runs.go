package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/ledger"
	"github.com/lpouillo/google-dc-g5k/internal/ui"
)

// stdout receives command output.
var stdout io.Writer = os.Stdout

// errNoLedger is returned when the run history is disabled.
var errNoLedger = errors.New("no run history configured (ledger.path is empty)")

// Runs prints the most recent runs recorded in the ledger.
func Runs(ctx context.Context, configPath string, limit int) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Ledger.Path == "" {
		return errNoLedger
	}

	l, err := openLedger(ctx, cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	runs, err := l.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded yet.")
		return nil
	}
	fmt.Fprintln(stdout, ui.Table(
		[]string{"ID", "LABEL", "SITE", "JOB", "STATUS", "VNODES", "COORDINATOR", "STARTED", "DURATION"},
		runRows(runs),
	))
	return nil
}

func runRows(runs []ledger.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := string(r.Status)
		if r.FailedPhase != "" {
			status += " (" + r.FailedPhase + ")"
		}
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		job := "-"
		if r.JobID != 0 {
			job = strconv.FormatInt(r.JobID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Label,
			r.Site,
			job,
			status,
			fmt.Sprintf("%d/%d", r.Running, r.VirtualNodes),
			r.Coordinator,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
		})
	}
	return rows
}
