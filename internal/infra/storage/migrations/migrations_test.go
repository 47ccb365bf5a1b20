package migrations

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogLogger_FollowsDefaultHandler(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	slogLogger{}.Printf("OK   %s (%s)\n", "00001_create_species_records.sql", "1ms")

	out := buf.String()
	if !strings.Contains(out, "component=migrations") {
		t.Errorf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "00001_create_species_records.sql") {
		t.Errorf("expected goose message, got %q", out)
	}
	if strings.Contains(out, `\n`) {
		t.Errorf("expected trailing newline trimmed, got %q", out)
	}
}
