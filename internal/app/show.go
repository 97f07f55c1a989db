package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"grider-status-alerts/internal/dashboard"
)

// Show prints recent persisted samples.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show samples")
	}
	if closeStore != nil {
		defer closeStore()
	}

	samples, err := store.ListRecentSamples(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tScore\tCompleted\tAccept%\tRiders\tStatus\tError")

	for _, sample := range samples {
		errMsg := ""
		if sample.Error != nil {
			errMsg = dashboard.SanitizeInline(*sample.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%d\t%d\t%s\t%d\t%s\t%s\n",
			sample.Bucket.UTC().Format(time.RFC3339),
			sample.TotalScore,
			sample.TotalCompleted,
			sample.AcceptancePct.StringFixed(1),
			sample.ActiveRiders,
			sample.Status,
			errMsg,
		)
	}

	writer.Flush()
	return nil
}
