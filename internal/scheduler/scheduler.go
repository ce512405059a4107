package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/scorecard/pkg/alert"
	"github.com/elonfeng/scorecard/pkg/scorecard"
)

// Scheduler periodically rescores the funding-rounds file and posts the
// featured list when it changes.
type Scheduler struct {
	engine   *scorecard.Engine
	alertMgr *alert.Manager
	input    string
	output   string
	interval time.Duration
	log      zerolog.Logger

	lastFeatured string
}

// New creates a new scheduler. output may be a file path, a directory or
// empty; the latter two get a dated scorecard filename.
func New(
	engine *scorecard.Engine,
	alertMgr *alert.Manager,
	input, output string,
	interval time.Duration,
	log zerolog.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Scheduler{
		engine:   engine,
		alertMgr: alertMgr,
		input:    input,
		output:   output,
		interval: interval,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	s.log.Info().Dur("interval", s.interval).Msg("running")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	sc, path, err := s.RunOnce(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Msg("rescore failed")
		}
		return
	}
	s.log.Info().
		Str("run_id", sc.RunID).
		Str("path", path).
		Int("companies", len(sc.Companies)).
		Msg("scorecard written")
}

// RunOnce scores the input file, writes the CSV and broadcasts the featured
// list if it differs from the previous broadcast. It returns the scorecard and
// the path written.
func (s *Scheduler) RunOnce(ctx context.Context) (*scorecard.Scorecard, string, error) {
	f, err := os.Open(s.input)
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	sc, err := s.engine.RunCSV(ctx, f)
	if err != nil {
		return nil, "", err
	}

	path := s.outputPath(sc.GeneratedAt)
	if err := writeFileAtomic(path, sc.Companies); err != nil {
		return nil, "", err
	}

	s.alert(ctx, sc)
	return sc, path, nil
}

func (s *Scheduler) outputPath(t time.Time) string {
	if s.output == "" {
		return scorecard.Filename(t)
	}
	if info, err := os.Stat(s.output); err == nil && info.IsDir() {
		return filepath.Join(s.output, scorecard.Filename(t))
	}
	return s.output
}

func (s *Scheduler) alert(ctx context.Context, sc *scorecard.Scorecard) {
	if !s.alertMgr.HasNotifiers() {
		return
	}

	featured := sc.Featured()
	ids := make([]string, len(featured))
	for i, c := range featured {
		ids[i] = c.ID
	}
	sig := strings.Join(ids, "\x00")
	if sig == s.lastFeatured {
		s.log.Debug().Msg("featured list unchanged, skipping alert")
		return
	}

	if err := s.alertMgr.Broadcast(ctx, alert.FromScorecard(sc)); err != nil {
		s.log.Warn().Err(err).Msg("alert failed")
		return
	}
	s.lastFeatured = sig
	s.log.Info().Int("featured", len(featured)).Msg("alerted")
}

func writeFileAtomic(path string, companies []scorecard.Company) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-scorecard-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := scorecard.WriteCSV(tmp, companies); err != nil {
		tmp.Close()
		return fmt.Errorf("write scorecard: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
