package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/qepting91/reddit-hot-comments/internal/storage"
)

const recentRuns = 20

// History is the read side of the run history store.
type History interface {
	RecentRuns(ctx context.Context, limit int) ([]storage.RunSummary, error)
	PostOutcomes(ctx context.Context, runID string) ([]storage.PostOutcome, error)
}

// Handler renders charts over recent runs.
func Handler(history History, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runs, err := history.RecentRuns(r.Context(), recentRuns)
		if err != nil {
			logger.Error("dashboard history query failed", "error", err)
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}

		// 1. Comments collected per run, oldest on the left
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "Comments per Run"}),
			charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		)
		var barX []string
		var barY []opts.BarData
		for i := len(runs) - 1; i >= 0; i-- {
			barX = append(barX, runs[i].Subreddit+" "+runs[i].StartedAt.Format("01-02 15:04"))
			barY = append(barY, opts.BarData{Value: runs[i].CommentsTotal})
		}
		bar.SetXAxis(barX).AddSeries("Comments", barY)

		// 2. Post status mix for the latest run
		pie := charts.NewPie()
		title := "Latest Run: Post Status"
		var pieItems []opts.PieData
		if len(runs) > 0 {
			title += " (r/" + runs[0].Subreddit + ")"
			outcomes, err := history.PostOutcomes(r.Context(), runs[0].RunID)
			if err != nil {
				logger.Error("dashboard outcome query failed", "run_id", runs[0].RunID, "error", err)
			}
			pieItems = statusSlices(outcomes)
		}
		pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: title}))
		pie.AddSeries("Posts", pieItems)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		bar.Render(w)
		pie.Render(w)
	})
}

func statusSlices(outcomes []storage.PostOutcome) []opts.PieData {
	counts := make(map[string]int)
	var order []string
	for _, o := range outcomes {
		s := string(o.Status)
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}

	items := make([]opts.PieData, 0, len(order))
	for _, s := range order {
		items = append(items, opts.PieData{Name: s, Value: counts[s]})
	}
	return items
}
