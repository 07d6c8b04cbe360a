package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sparkmates/sparkmates/internal/config"
)

func TestFormatterLine(t *testing.T) {
	f := &Formatter{SystemName: "test"}
	entry := &logrus.Entry{
		Time:    time.Date(2023, 8, 20, 9, 15, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "login failed",
		Data:    logrus.Fields{"user": "user1", "email": "test@example.com"},
	}
	out, err := f.Format(entry)
	if err != nil {
		t.Fatal(err)
	}
	line := string(out)
	for _, want := range []string{
		"date=2023-08-20", "time=09:15:00", "source=test", "level=WARNING",
		`msg="login failed"`, "email=test@example.com user=user1",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatal("line should end with newline")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparkmates.log")
	logger, err := New(config.LogConfig{Level: "info", File: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("started")
	logger.Debug("hidden")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `msg="started"`) {
		t.Fatalf("missing entry: %s", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatal("debug entry should be filtered at info level")
	}
}
