package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"grider-status-alerts/internal/storage"
)

// Export renders historical samples as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	samples, err := store.ListSamplesBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		a.Logger.Info().Msg("no samples found for export window")
		return nil
	}

	downsampled := downsampleSamples(samples, opts.MaxPoints)
	a.Logger.Info().Int("total", len(samples)).Int("exported", len(downsampled)).Msg("exporting samples")

	if opts.CSVPath != "" {
		if err := writeSamplesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSamplesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleSamples(samples []storage.StatusSample, max int) []storage.StatusSample {
	if max <= 0 || len(samples) <= max {
		return samples
	}

	result := make([]storage.StatusSample, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

func writeSamplesCSV(path string, samples []storage.StatusSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"bucket_ts", "total_score", "total_completed", "acceptance_pct", "active_riders", "status", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		errMsg := ""
		if sample.Error != nil {
			errMsg = *sample.Error
		}
		record := []string{
			sample.Bucket.Format(time.RFC3339),
			strconv.Itoa(sample.TotalScore),
			strconv.Itoa(sample.TotalCompleted),
			sample.AcceptancePct.String(),
			strconv.Itoa(sample.ActiveRiders),
			sample.Status,
			errMsg,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSamplesPNG(path string, samples []storage.StatusSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(samples))
	scores := make([]float64, len(samples))
	completed := make([]float64, len(samples))
	riders := make([]float64, len(samples))

	for i, sample := range samples {
		x[i] = sample.Bucket
		scores[i] = float64(sample.TotalScore)
		completed[i] = float64(sample.TotalCompleted)
		riders[i] = float64(sample.ActiveRiders)
	}

	countFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Score",
			ValueFormatter: countFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Count",
			ValueFormatter: countFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Score",
				XValues: x,
				YValues: scores,
			},
			chart.TimeSeries{
				Name:    "Completed",
				XValues: x,
				YValues: completed,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Active riders",
				XValues: x,
				YValues: riders,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
