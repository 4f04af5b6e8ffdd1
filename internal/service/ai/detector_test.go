package ai

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"predictor/internal/apperr"
	"predictor/internal/config"
	"predictor/internal/logger"
)

type countingFetcher struct {
	calls int
}

func (f *countingFetcher) Fetch(context.Context, string, string) error {
	f.calls++
	return nil
}

func TestLoad_MissingWeights(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "detector_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := &config.Config{
		ModelPath: filepath.Join(tempDir, "missing.onnx"),
		Device:    "cpu",
	}
	fetcher := &countingFetcher{}

	_, err = Load(context.Background(), cfg, logger.NewNop(), Options{Fetcher: fetcher})
	if !apperr.Is(err, apperr.MissingModelFile) {
		t.Fatalf("Expected MissingModelFile, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("Expected no download without URL, got %d", fetcher.calls)
	}
}

func TestLoad_FailedDownloadTriedOnce(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "detector_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := &config.Config{
		ModelPath: filepath.Join(tempDir, "weights", "missing.onnx"),
		ModelURL:  "http://example.invalid/yolo11n.onnx",
		Device:    "cpu",
	}
	fetcher := &countingFetcher{}

	_, err = Load(context.Background(), cfg, logger.NewNop(), Options{Fetcher: fetcher})
	if !apperr.Is(err, apperr.MissingModelFile) {
		t.Fatalf("Expected MissingModelFile, got %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("Expected exactly one download attempt, got %d", fetcher.calls)
	}
}
