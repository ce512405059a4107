package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/scorecard/internal/config"
	"github.com/elonfeng/scorecard/internal/scheduler"
	"github.com/elonfeng/scorecard/internal/store"
	"github.com/elonfeng/scorecard/pkg/alert"
	"github.com/elonfeng/scorecard/pkg/enrich"
	"github.com/elonfeng/scorecard/pkg/funding"
	"github.com/elonfeng/scorecard/pkg/scorecard"
	"github.com/elonfeng/scorecard/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("scorecard.yaml"); err == nil {
			path = "scorecard.yaml"
		}
	}
	return config.Load(path)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, store.Backend(cfg.Cache.Backend), cfg.Cache.Location())
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return st, nil
}

func buildClient(cfg *config.Config, cache enrich.Cache, reg prometheus.Registerer, log zerolog.Logger) *enrich.Client {
	fetcher := enrich.NewHTMLFetcher(cfg.Enrich.ParseTimeout(), cfg.Enrich.SearchURL, cfg.Enrich.UserAgent)
	return enrich.NewClient(cache, fetcher, enrich.Options{
		Workers:       cfg.Enrich.Workers,
		RatePerSecond: cfg.Enrich.RatePerSecond,
		FetchTimeout:  cfg.Enrich.ParseTimeout(),
		Metrics:       enrich.NewMetrics(reg),
	}, log.With().Str("component", "enrich").Logger())
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

func runScore(cmd *cobra.Command, f scoreFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("input") {
		cfg.Input.Path = f.input
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Path = f.output
	}
	if cmd.Flags().Changed("enrich") {
		cfg.Enrich.Enabled = f.enrich
	}
	if f.cutoff > 0 {
		cfg.Output.FeaturedCutoff = f.cutoff
	}

	ctx := cmd.Context()
	log := newLogger(cfg.Log.Level)

	var enricher scorecard.Enricher
	if cfg.Enrich.Enabled {
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		enricher = buildClient(cfg, st, prometheus.NewRegistry(), log)
	}

	in, err := openInput(cfg.Input.Path)
	if err != nil {
		return err
	}
	defer in.Close()

	engine := scorecard.NewEngine(enricher, cfg.Output.FeaturedCutoff, log)
	sc, err := engine.RunCSV(ctx, in)
	if err != nil {
		return err
	}

	if f.table {
		return scorecard.WriteTable(os.Stdout, sc.Companies)
	}

	dest := cfg.Output.Path
	if dest == "" {
		dest = scorecard.Filename(sc.GeneratedAt)
		if f.json {
			dest = "-"
		}
	}

	var w io.Writer = os.Stdout
	if dest != "-" {
		out, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer out.Close()
		w = out
	}

	if f.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sc); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	} else if err := scorecard.WriteCSV(w, sc.Companies); err != nil {
		return err
	}

	if dest != "-" {
		log.Info().
			Str("path", dest).
			Int("companies", len(sc.Companies)).
			Int("featured", len(sc.Featured())).
			Int64("cache_hits", sc.Enrichment.Hits).
			Int64("fetch_failures", sc.Enrichment.Failures).
			Msg("scorecard written")
	}
	return nil
}

func runEnrich(ctx context.Context, input string, names []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if input != "" {
		cfg.Input.Path = input
	}
	log := newLogger(cfg.Log.Level)

	var targets []enrich.Target
	if len(names) > 0 {
		for _, n := range names {
			targets = append(targets, enrich.Target{Name: n})
		}
	} else {
		in, err := openInput(cfg.Input.Path)
		if err != nil {
			return err
		}
		rounds, err := funding.ReadCSV(in)
		in.Close()
		if err != nil {
			return fmt.Errorf("read rounds: %w", err)
		}
		for _, c := range scorecard.Aggregate(rounds) {
			targets = append(targets, enrich.Target{Name: c.Name, Website: c.Website})
		}
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	client := buildClient(cfg, st, prometheus.NewRegistry(), log)
	results, err := client.EnrichAll(ctx, targets)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tLANGUAGES\tRATING")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Name, r.Source, r.Record.LanguageCount, r.Record.Rating)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats := client.Stats()
	log.Info().
		Int64("hits", stats.Hits).
		Int64("misses", stats.Misses).
		Int64("failures", stats.Failures).
		Msg("enrichment done")
	return nil
}

func runCacheList(ctx context.Context, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("list cache: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("cache is empty (try: scorecard enrich)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tLANGUAGES\tRATING\tFETCHED")
	for _, e := range entries {
		fetched := "-"
		if !e.FetchedAt.IsZero() {
			fetched = humanize.Time(e.FetchedAt)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.Key, e.Record.LanguageCount, e.Record.Rating, fetched)
	}
	return w.Flush()
}

func runCacheRemove(ctx context.Context, names []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, n := range names {
		key := enrich.CacheKey(n)
		if key == "" {
			continue
		}
		if err := st.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		fmt.Fprintf(os.Stderr, "removed %s\n", key)
	}
	return nil
}

// serverDeps are shared by serve and run.
type serverDeps struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    store.Store
	engine   *scorecard.Engine
	enriched *scorecard.Engine
	server   *server.Server
}

func buildServer(ctx context.Context, port int) (*serverDeps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	log := newLogger(cfg.Log.Level)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := newRegistry()
	client := buildClient(cfg, st, reg, log)

	d := &serverDeps{
		cfg:    cfg,
		log:    log,
		store:  st,
		engine: scorecard.NewEngine(nil, cfg.Output.FeaturedCutoff, log),
	}
	if cfg.Enrich.Enabled {
		d.enriched = scorecard.NewEngine(client, cfg.Output.FeaturedCutoff, log)
	}
	d.server = server.New(server.Options{
		Engine:         d.engine,
		EnrichEngine:   d.enriched,
		Cache:          client,
		Gatherer:       reg,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Port:           cfg.Server.Port,
	}, log)
	return d, nil
}

func runServe(ctx context.Context, port int) error {
	d, err := buildServer(ctx, port)
	if err != nil {
		return err
	}
	defer d.store.Close()

	return d.server.ListenAndServe(ctx)
}

func runDaemon(ctx context.Context, port int) error {
	d, err := buildServer(ctx, port)
	if err != nil {
		return err
	}
	defer d.store.Close()

	engine := d.engine
	if d.enriched != nil {
		engine = d.enriched
	}
	sched := scheduler.New(engine, buildAlertManager(d.cfg),
		d.cfg.Input.Path, d.cfg.Output.Path,
		d.cfg.Schedule.ParseInterval(), d.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return d.server.ListenAndServe(gctx)
	})

	err = g.Wait()
	d.log.Info().Msg("shutting down")
	return err
}
