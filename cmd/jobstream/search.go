// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/jobstream/internal/search"
	"github.com/pdiddy/jobstream/internal/stream"
	"github.com/pdiddy/jobstream/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search every enabled job platform",
	Long: `Search queries the enabled platforms in parallel, drops postings that
mention an --exclude term, deduplicates the rest, and prints them.

By default the search runs in this process and prints one page of results.
--stream prints postings as each platform delivers them. --server sends the
search to a running "jobstream serve" instead and consumes its event stream.
--save writes the results to a YAML file; --load prints a saved file
without searching again.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	if path, _ := cmd.Flags().GetString("load"); path != "" {
		rf, err := search.ReadResultFile(path)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, rf)
		}
		fmt.Fprintf(out, "Saved search %q (%s), %d jobs\n", describeQuery(rf.Query.ToQuery()), rf.Summary.Timestamp.Format("2006-01-02 15:04"), rf.Summary.Total)
		printJobs(out, rf.Jobs, 1)
		for _, e := range rf.Summary.PlatformErrors {
			fmt.Fprintf(out, "  platform error: %s\n", e)
		}
		return nil
	}

	q := queryFromFlags(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	serverURL, _ := cmd.Flags().GetString("server")
	live, _ := cmd.Flags().GetBool("stream")

	var res search.Result
	var err error
	switch {
	case serverURL != "":
		res, err = searchRemote(ctx, cmd, serverURL, q, out)
	case live:
		res, err = searchStreaming(ctx, q, out)
	default:
		res, err = searchCollect(ctx, q)
		if err == nil {
			if jsonOutput {
				err = writeJSON(out, res)
			} else {
				printResult(out, res)
			}
		}
	}
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteResultFile(path, q, res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d jobs to %s\n", len(res.Jobs), path)
	}
	return nil
}

func searchCollect(ctx context.Context, q search.Query) (search.Result, error) {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return search.Result{}, err
	}
	defer a.Close()
	return search.Collect(ctx, a.agg, q)
}

func searchStreaming(ctx context.Context, q search.Query, out io.Writer) (search.Result, error) {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return search.Result{}, err
	}
	defer a.Close()

	p := &eventPrinter{w: out}
	sum, err := a.agg.Run(ctx, q, p)
	if err != nil {
		return search.Result{}, err
	}
	return p.result(sum.RunID), nil
}

func searchRemote(ctx context.Context, cmd *cobra.Command, serverURL string, q search.Query, out io.Writer) (search.Result, error) {
	token, _ := cmd.Flags().GetString("token")
	c := &stream.Client{BaseURL: serverURL, Token: token, Logger: logger}

	p := &eventPrinter{w: out}
	if err := c.Consume(ctx, q, p.Emit); err != nil {
		return search.Result{}, err
	}
	return p.result(p.runID), nil
}

// eventPrinter prints a run as it happens. It serves as the aggregator's
// Sink in process and as the stream client's Handler.
type eventPrinter struct {
	w      io.Writer
	runID  string
	jobs   []types.JobPosting
	errors map[string]string
}

func (p *eventPrinter) Emit(ev types.Event) error {
	switch e := ev.(type) {
	case types.StartEvent:
		p.runID = e.RunID
		fmt.Fprintf(p.w, "Searching %s on %s\n", describeQuery(search.Query{Keywords: e.Keywords, Location: e.Location}), strings.Join(e.Platforms, ", "))
	case types.JobsEvent:
		printJobs(p.w, e.Jobs, len(p.jobs)+1)
		p.jobs = append(p.jobs, e.Jobs...)
	case types.PlatformCompleteEvent:
		if e.Error != "" {
			if p.errors == nil {
				p.errors = make(map[string]string)
			}
			p.errors[e.Platform] = e.Error
			fmt.Fprintf(p.w, "  %s failed: %s\n", e.Platform, e.Error)
		} else {
			fmt.Fprintf(p.w, "  %s done: %d jobs\n", e.Platform, e.JobCount)
		}
	case types.CompleteEvent:
		fmt.Fprintf(p.w, "Found %d jobs\n", e.TotalJobs)
	case types.ErrorEvent:
		fmt.Fprintf(p.w, "Search failed: %s\n", e.Message)
	}
	return nil
}

func (p *eventPrinter) result(runID string) search.Result {
	return search.Result{
		RunID:          runID,
		Jobs:           p.jobs,
		Pagination:     types.Pagination{Page: 1, PerPage: len(p.jobs), Total: len(p.jobs), TotalPages: 1},
		PlatformErrors: p.errors,
	}
}

func queryFromFlags(cmd *cobra.Command) search.Query {
	var q search.Query
	q.Keywords, _ = cmd.Flags().GetString("keywords")
	if q.Keywords == "" && len(cmd.Flags().Args()) > 0 {
		q.Keywords = strings.Join(cmd.Flags().Args(), " ")
	}
	q.Location, _ = cmd.Flags().GetString("location")
	q.Remote, _ = cmd.Flags().GetBool("remote")
	q.Platforms, _ = cmd.Flags().GetStringSlice("platforms")
	q.Exclude, _ = cmd.Flags().GetStringSlice("exclude")
	q.Page, _ = cmd.Flags().GetInt("page")
	q.PerPage, _ = cmd.Flags().GetInt("per-page")
	return q
}

func describeQuery(q search.Query) string {
	var parts []string
	if q.Keywords != "" {
		parts = append(parts, q.Keywords)
	}
	if q.Location != "" {
		parts = append(parts, "in "+q.Location)
	}
	if q.Remote {
		parts = append(parts, "(remote)")
	}
	if len(parts) == 0 {
		return "anything"
	}
	return strings.Join(parts, " ")
}

func printResult(w io.Writer, res search.Result) {
	pg := res.Pagination
	fmt.Fprintf(w, "%d jobs (page %d of %d)\n", pg.Total, pg.Page, max(pg.TotalPages, 1))
	printJobs(w, res.Jobs, (pg.Page-1)*pg.PerPage+1)

	platforms := make([]string, 0, len(res.PlatformErrors))
	for p := range res.PlatformErrors {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		fmt.Fprintf(w, "  %s failed: %s\n", p, res.PlatformErrors[p])
	}
}

func printJobs(w io.Writer, jobs []types.JobPosting, first int) {
	for i, j := range jobs {
		where := j.Location
		if j.Remote && !strings.Contains(strings.ToLower(where), "remote") {
			where = strings.TrimSpace(where + " (remote)")
		}
		fmt.Fprintf(w, "%3d. %s at %s", first+i, j.Title, j.Company)
		if where != "" {
			fmt.Fprintf(w, " [%s]", where)
		}
		fmt.Fprintf(w, " via %s\n     %s\n", j.Platform, j.URL)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	searchCmd.Flags().String("keywords", "", "search keywords (positional arguments are used when empty)")
	searchCmd.Flags().String("location", "", `location filter; "remote" means remote only`)
	searchCmd.Flags().Bool("remote", false, "remote positions only")
	searchCmd.Flags().StringSlice("platforms", nil, "platforms to search (default: all enabled)")
	searchCmd.Flags().StringSlice("exclude", nil, "drop postings mentioning any of these terms")
	searchCmd.Flags().Int("page", 1, "page of results to print")
	searchCmd.Flags().Int("per-page", 20, "results per page")
	searchCmd.Flags().Bool("stream", false, "print postings as each platform delivers them")
	searchCmd.Flags().String("server", "", "base URL of a jobstream server to search through")
	searchCmd.Flags().String("token", "", "bearer token for --server")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write results to a YAML file")
	searchCmd.Flags().String("load", "", "print a saved YAML result file instead of searching")

	rootCmd.AddCommand(searchCmd)
}
