package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"inventory-search/internal/autocomplete"
	"inventory-search/internal/config"
)

type probeTarget struct {
	endpoint     string
	autocomplete bool
}

// probeTargets expands every binding of l into the distinct endpoints it
// would query.
func probeTargets(l config.Layout) ([]probeTarget, error) {
	seen := map[probeTarget]bool{}
	var out []probeTarget
	for _, b := range l.Bindings {
		matched, err := l.Match(b.Selector)
		if err != nil {
			return nil, err
		}
		for _, in := range matched {
			t := probeTarget{autocomplete.ExpandEndpoint(b.Endpoint, in.Name, in.Tag), b.Autocomplete}
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].endpoint < out[j].endpoint })
	return out, nil
}

func probe(ctx context.Context, w io.Writer, s autocomplete.Searcher, targets []probeTarget, query string) int {
	failed := 0
	for _, t := range targets {
		items, err := s.Search(ctx, t.endpoint, query, t.autocomplete)
		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %-32s %v\n", t.endpoint, err)
			continue
		}
		fmt.Fprintf(w, "ok   %-32s %d suggestion(s)\n", t.endpoint, len(items))
	}
	return failed
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	layout, err := layoutFor(cfg)
	if err != nil {
		return err
	}
	client, err := clientFor(cfg)
	if err != nil {
		return err
	}
	targets, err := probeTargets(layout)
	if err != nil {
		return err
	}
	query := "a"
	if len(args) == 1 {
		query = args[0]
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout*time.Duration(max(len(targets), 1)))
	defer cancel()
	out := cmd.OutOrStdout()
	failed := probe(ctx, out, client, targets, query)
	fmt.Fprintln(out, client.Metrics().Snapshot().String())
	if failed > 0 {
		return fmt.Errorf("%d of %d endpoints failed", failed, len(targets))
	}
	return nil
}
