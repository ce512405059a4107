package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/scorecard/pkg/alert"
	"github.com/elonfeng/scorecard/pkg/funding"
	"github.com/elonfeng/scorecard/pkg/scorecard"
)

const rounds = `company_id,name,amount
a,Alpha,100000
b,Beta,60000
`

type recorder struct {
	got []*alert.Notification
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Send(_ context.Context, n *alert.Notification) error {
	r.got = append(r.got, n)
	return nil
}

func writeInput(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "deals.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunOnceWritesCSVAndAlerts(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, rounds)
	rec := &recorder{}
	s := New(scorecard.NewEngine(nil, 1, zerolog.Nop()), alert.NewManager([]alert.Notifier{rec}),
		input, dir, time.Hour, zerolog.Nop())

	sc, path, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, scorecard.Filename(sc.GeneratedAt)), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(scorecard.Columns, ","), lines[0])

	require.Len(t, rec.got, 1)
	require.Len(t, rec.got[0].Companies, 1)
	assert.Equal(t, sc.RunID, rec.got[0].RunID)

	// Same featured set: no second alert.
	_, _, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.got, 1)

	writeInput(t, dir, "company_id,name,amount\nb,Beta,60000\n")
	_, _, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.got, 2)
}

func TestRunOnceExplicitPath(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, rounds)
	out := filepath.Join(dir, "out.csv")
	s := New(scorecard.NewEngine(nil, 0, zerolog.Nop()), nil, input, out, 0, zerolog.Nop())

	_, path, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, out, path)
	assert.FileExists(t, out)
}

func TestRunOnceInputError(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "name\nAlpha\n")
	s := New(scorecard.NewEngine(nil, 0, zerolog.Nop()), nil, input, dir, 0, zerolog.Nop())

	_, _, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, funding.IsInputError(err))
}

func TestRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, rounds)
	s := New(scorecard.NewEngine(nil, 0, zerolog.Nop()), nil, input, dir, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
