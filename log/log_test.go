package log_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ghettovoice/gotick/log"
)

func TestDefault(t *testing.T) {
	if got := log.Default(); got != log.Def {
		t.Errorf("log.Default() = %v, want log.Def", got)
	}

	log.SetDefault(log.Noop)
	t.Cleanup(func() { log.SetDefault(log.Def) })
	if got := log.Default(); got != log.Noop {
		t.Errorf("log.Default() = %v, want log.Noop", got)
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()

	if log.Noop.Enabled(context.Background(), slog.LevelError) {
		t.Error("log.Noop.Enabled(ctx, error) = true, want false")
	}
	log.Noop.Error("dropped")
}

func TestFmtValue(t *testing.T) {
	t.Parallel()

	if got, want := log.FmtValue("boom", false).LogValue().String(), "boom"; got != want {
		t.Errorf(`log.FmtValue("boom", false).LogValue() = %q, want %q`, got, want)
	}
	if got, want := log.FmtValue("boom", true).LogValue().String(), `"boom"`; got != want {
		t.Errorf(`log.FmtValue("boom", true).LogValue() = %q, want %q`, got, want)
	}
}
