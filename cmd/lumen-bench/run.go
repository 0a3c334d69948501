package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lumen-ui/lumen/internal/devtools"
	"github.com/lumen-ui/lumen/pkg/observe"
	"github.com/lumen-ui/lumen/pkg/reference"
	"github.com/lumen-ui/lumen/pkg/tags"
	"github.com/lumen-ui/lumen/pkg/tracking"
)

type profile struct {
	Name     string
	Contacts int
	Duration time.Duration
	// Writes is how many tracked fields are dirtied per iteration.
	Writes int
	// UnrelatedWrites dirties fields no reference depends on, to
	// measure that nothing recomputes for them.
	UnrelatedWrites int
}

var profiles = map[string]profile{
	"fast": {
		Name:            "fast",
		Contacts:        100,
		Duration:        5 * time.Second,
		Writes:          2,
		UnrelatedWrites: 2,
	},
	"standard": {
		Name:            "standard",
		Contacts:        1000,
		Duration:        15 * time.Second,
		Writes:          10,
		UnrelatedWrites: 10,
	},
	"stress": {
		Name:            "stress",
		Contacts:        10000,
		Duration:        30 * time.Second,
		Writes:          100,
		UnrelatedWrites: 100,
	},
}

type benchConfig struct {
	Profile     string
	JSONOutput  string
	InspectAddr string
	MetricsAddr string
}

// counterSink tallies engine events for the report.
type counterSink struct {
	recomputes atomic.Uint64
	cacheHits  atomic.Uint64
	dirties    atomic.Uint64
	cells      atomic.Uint64
}

func (c *counterSink) ReactiveEvent(e observe.Event) {
	switch e.Kind {
	case observe.KindRecompute:
		c.recomputes.Add(1)
	case observe.KindCacheHit:
		c.cacheHits.Add(1)
	case observe.KindDirty:
		c.dirties.Add(1)
	case observe.KindCellCreated:
		c.cells.Add(1)
	}
}

type benchResult struct {
	Profile       string  `json:"profile"`
	Contacts      int     `json:"contacts"`
	Iterations    uint64  `json:"iterations"`
	Reads         uint64  `json:"reads"`
	Recomputes    uint64  `json:"recomputes"`
	CacheHits     uint64  `json:"cacheHits"`
	CacheHitRatio float64 `json:"cacheHitRatio"`
	Dirties       uint64  `json:"dirties"`
	CellsCreated  uint64  `json:"cellsCreated"`
	FinalRevision uint64  `json:"finalRevision"`
	Elapsed       string  `json:"elapsed"`
	ReadsPerSec   float64 `json:"readsPerSec"`
}

type person struct {
	FirstName string
	LastName  string
	Notes     string
}

type contact struct {
	Person *person
	Email  string
}

func newRunCmd() *cobra.Command {
	config := benchConfig{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the invalidation benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(config)
		},
	}

	cmd.Flags().StringVar(&config.Profile, "profile", "fast", "benchmark profile: fast, standard, stress")
	cmd.Flags().StringVar(&config.JSONOutput, "json", "", "write results as JSON to this file ('-' for stdout)")
	cmd.Flags().StringVar(&config.InspectAddr, "inspect", "", "serve the dev inspector on this address (e.g. :7979)")
	cmd.Flags().StringVar(&config.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runBench(config benchConfig) error {
	prof, ok := profiles[config.Profile]
	if !ok {
		return fmt.Errorf("unknown profile %q", config.Profile)
	}

	store := tracking.NewStorage()

	counters := &counterSink{}
	defer observe.Register(counters)()

	if config.MetricsAddr != "" {
		defer observe.Register(observe.NewPromSink(observe.WithSubsystem("bench")))()
		go serveMetrics(config.MetricsAddr)
	}
	if config.InspectAddr != "" {
		inspector := devtools.NewInspector(store)
		defer observe.Register(inspector)()
		go serveInspector(config.InspectAddr, inspector)
	}

	store.MarkTracked(&person{}, "FirstName", "LastName", "Notes")
	store.MarkTracked(&contact{}, "Person", "Email")

	contacts := make([]*contact, prof.Contacts)
	fullNames := make([]*reference.Cached[string], prof.Contacts)
	for i := range contacts {
		p := &person{}
		store.Set(p, "FirstName", fmt.Sprintf("First%d", i))
		store.Set(p, "LastName", fmt.Sprintf("Last%d", i))
		contacts[i] = &contact{Person: p}

		root := reference.StateIn(store, contacts[i])
		first := root.GetPath("person.firstName")
		last := root.GetPath("person.lastName")
		fullNames[i] = reference.NewCached(func() string {
			return fmt.Sprintf("%v %v", first.Value(), last.Value())
		})
	}

	rng := rand.New(rand.NewSource(42))
	deadline := time.Now().Add(prof.Duration)
	start := time.Now()

	var iterations, reads uint64
	for time.Now().Before(deadline) {
		for w := 0; w < prof.Writes; w++ {
			i := rng.Intn(prof.Contacts)
			store.Set(contacts[i].Person, "FirstName", fmt.Sprintf("First%d-%d", i, iterations))
		}
		for w := 0; w < prof.UnrelatedWrites; w++ {
			i := rng.Intn(prof.Contacts)
			store.Set(contacts[i].Person, "Notes", fmt.Sprintf("note-%d", iterations))
		}
		for _, ref := range fullNames {
			_ = ref.Value()
			reads++
		}
		iterations++
	}
	elapsed := time.Since(start)

	result := benchResult{
		Profile:       prof.Name,
		Contacts:      prof.Contacts,
		Iterations:    iterations,
		Reads:         reads,
		Recomputes:    counters.recomputes.Load(),
		CacheHits:     counters.cacheHits.Load(),
		Dirties:       counters.dirties.Load(),
		CellsCreated:  counters.cells.Load(),
		FinalRevision: uint64(tags.CurrentRevision()),
		Elapsed:       elapsed.Round(time.Millisecond).String(),
		ReadsPerSec:   float64(reads) / elapsed.Seconds(),
	}
	if reads > 0 {
		result.CacheHitRatio = float64(result.CacheHits) / float64(result.CacheHits+result.Recomputes)
	}

	return report(result, config.JSONOutput)
}

func report(result benchResult, jsonOutput string) error {
	fmt.Printf("profile=%s contacts=%d iterations=%d\n", result.Profile, result.Contacts, result.Iterations)
	fmt.Printf("reads=%d (%.0f/sec) recomputes=%d cacheHits=%d hitRatio=%.3f\n",
		result.Reads, result.ReadsPerSec, result.Recomputes, result.CacheHits, result.CacheHitRatio)
	fmt.Printf("dirties=%d cells=%d finalRevision=%d elapsed=%s\n",
		result.Dirties, result.CellsCreated, result.FinalRevision, result.Elapsed)

	if jsonOutput == "" {
		return nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if jsonOutput == "-" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(jsonOutput, append(data, '\n'), 0o644)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server: %v", err)
	}
}

func serveInspector(addr string, inspector *devtools.Inspector) {
	r := chi.NewRouter()
	r.Mount("/debug/lumen", inspector.Routes())
	log.Printf("inspector listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Printf("inspector server: %v", err)
	}
}
