package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"predictor/internal/config"
	"predictor/internal/logger"
)

func TestAtoiDefault_ValidInput(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"1", 0, 1},
		{"100", 1, 100},
	}

	for _, tt := range tests {
		result := atoiDefault(tt.input, tt.def)
		if result != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, result, tt.expected)
		}
	}
}

func TestAtoiDefault_InvalidInput(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"", 5, 5},
		{"abc", 10, 10},
		{"0", 20, 20},
		{"-5", 20, 20},
		{"12.5", 3, 3},
	}

	for _, tt := range tests {
		result := atoiDefault(tt.input, tt.def)
		if result != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, result, tt.expected)
		}
	}
}

func TestShowLogsHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "info.log"), []byte("model loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{LogDirectory: dir}

	rec := httptest.NewRecorder()
	ShowInfoLogsHandler(cfg)(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "model loaded\n" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	ShowErrorLogsHandler(cfg)(rec, httptest.NewRequest(http.MethodGet, "/logs/error", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing log, got %d", rec.Code)
	}
}

func TestClearLogsHandler(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer log.Close()

	log.Warning("low disk")

	rec := httptest.NewRecorder()
	ClearWarningLogsHandler(log)(rec, httptest.NewRequest(http.MethodPost, "/logs/warning/clear", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	info, err := os.Stat(filepath.Join(dir, "warning.log"))
	if err != nil {
		t.Fatalf("Expected warning.log: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty warning.log, got %d bytes", info.Size())
	}
}
