package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/qepting91/reddit-hot-comments/internal/domain"
	"github.com/qepting91/reddit-hot-comments/internal/ingest"
	"github.com/spf13/cobra"
)

var (
	runTargets string
	runParams  = domain.DefaultRunParams("")
	runSort    string
)

var runCmd = &cobra.Command{
	Use:   "run [subreddit...]",
	Short: "Fetch hot posts and comments for one or more subreddits and write CSVs",
	Long: `Fetch the hot listing of each subreddit, then the first batch of comments
for every post, and write one CSV per subreddit. Subreddits come from the
arguments and/or a CSV file given with --targets.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runTargets, "targets", "", "CSV file of subreddits (header row, first column)")
	f.IntVar(&runParams.PostsLimit, "posts-limit", runParams.PostsLimit, "hot posts to fetch (1-100)")
	f.IntVar(&runParams.CommentsLimit, "comments-limit", runParams.CommentsLimit, "comments per post (1-500)")
	f.IntVar(&runParams.Depth, "depth", runParams.Depth, "comment tree depth (1-10)")
	f.StringVar(&runSort, "sort", string(runParams.Sort), "comment sort: confidence|top|new|controversial|old|random|qa|live")
	f.IntVar(&runParams.PoliteDelayMS, "polite-delay-ms", runParams.PoliteDelayMS, "pause after each post's request (0-2000)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	subs := append([]string{}, args...)
	if runTargets != "" {
		loaded, err := ingest.LoadTargets(runTargets)
		if err != nil {
			return fmt.Errorf("load targets: %w", err)
		}
		subs = append(subs, loaded...)
	}
	if len(subs) == 0 {
		return fmt.Errorf("no subreddits given: pass names as arguments or use --targets")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	failed := 0
	for _, sub := range subs {
		p := runParams
		p.Subreddit = sub
		p.Sort = domain.CommentSort(runSort)

		result, err := a.runner.Run(context.Background(), p)
		if err != nil {
			failed++
			a.logger.Error("run failed", "subreddit", sub, "error", err)
			continue
		}
		_ = enc.Encode(result)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(subs))
	}
	return nil
}
