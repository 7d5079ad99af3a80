package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/litmap/internal/app"
	"github.com/kailas-cloud/litmap/internal/domain/article"
	"github.com/kailas-cloud/litmap/internal/domain/pipeline"
	"github.com/kailas-cloud/litmap/internal/domain/request"
	"github.com/kailas-cloud/litmap/internal/progress"
)

// NewAnalyzeCmd builds the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Search, cluster and print labelled topics once",
		Args:  cobra.NoArgs,
		RunE:  runAnalyze,
	}

	cmd.Flags().StringP("query", "q", "", "Search query (required)")
	cmd.Flags().IntP("articles", "n", 0, "Number of articles (default from config)")
	cmd.Flags().String("source", "", "Article source: semantic-scholar or pub-med (default from config)")
	cmd.Flags().Bool("exclude-empty", false, "Skip articles without an abstract")
	cmd.Flags().IntP("clusters", "k", 0, "Number of clusters (default from config)")
	cmd.Flags().Bool("prettify", false, "Refine cluster labels with a language model")
	cmd.Flags().String("api-token", "", "Completion API token (default refine.api_key)")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, logger, _, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	query, _ := cmd.Flags().GetString("query")
	amount, _ := cmd.Flags().GetInt("articles")
	src, _ := cmd.Flags().GetString("source")
	excludeEmpty, _ := cmd.Flags().GetBool("exclude-empty")
	k, _ := cmd.Flags().GetInt("clusters")
	prettify, _ := cmd.Flags().GetBool("prettify")
	token, _ := cmd.Flags().GetString("api-token")
	asJSON, _ := cmd.Flags().GetBool("json")

	if amount == 0 {
		amount = cfg.Clustering.DefaultArticles
	}
	if src == "" {
		src = cfg.Clustering.DefaultSource
	}
	if k == 0 {
		k = cfg.Clustering.DefaultClusters
	}

	searchReq, err := request.NewSearch(query, amount, src, excludeEmpty, cfg.Clustering.MaxArticles)
	if err != nil {
		return err
	}
	params, err := request.NewCluster(k, prettify, token)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if !asJSON {
		unsubscribe := printSteps(cmd.ErrOrStderr(), a.Pipeline.Progress())
		defer unsubscribe()
	}

	search, err := a.Pipeline.Search(ctx, searchReq)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	res, err := a.Pipeline.Reclusterize(ctx, params)
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}

	if asJSON {
		return writeClustersJSON(cmd.OutOrStdout(), search, res)
	}
	writeClustersText(cmd.OutOrStdout(), search, res)
	return nil
}

// printSteps writes every step once, when it completes.
func printSteps(w io.Writer, tracker *progress.Tracker) func() {
	var (
		mu      sync.Mutex
		printed = make(map[uint64]bool)
	)
	return tracker.Subscribe(progress.ObserverFunc(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range tracker.Steps() {
			if s.Complete && !printed[s.ID] {
				printed[s.ID] = true
				fmt.Fprintf(w, "  done  %s\n", s.Message)
			}
		}
	}))
}

type clusterOut struct {
	ID       int      `json:"id"`
	Label    string   `json:"label"`
	Keywords []string `json:"keywords"`
	Titles   []string `json:"titles"`
}

func collectClusters(search *pipeline.SearchResult, res *pipeline.ClusterizeResult) []clusterOut {
	members := res.Assignment.Members(res.K())
	out := make([]clusterOut, res.K())
	for id := range out {
		out[id] = clusterOut{
			ID:       id,
			Label:    res.Labels[id],
			Keywords: res.Keywords[id],
			Titles:   article.Titles(search.Documents, members[id]),
		}
	}
	return out
}

func writeClustersJSON(w io.Writer, search *pipeline.SearchResult, res *pipeline.ClusterizeResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"query":     search.Request.Query(),
		"documents": search.Len(),
		"refined":   res.Refined,
		"clusters":  collectClusters(search, res),
	})
}

func writeClustersText(w io.Writer, search *pipeline.SearchResult, res *pipeline.ClusterizeResult) {
	fmt.Fprintf(w, "%d articles in %d clusters for %q\n", search.Len(), res.K(), search.Request.Query())
	for _, c := range collectClusters(search, res) {
		fmt.Fprintf(w, "\n[%d] %s (%d)\n", c.ID, c.Label, len(c.Titles))
		for _, title := range c.Titles {
			fmt.Fprintf(w, "    - %s\n", title)
		}
	}
}
