package service

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gocv.io/x/gocv"

	"predictor/internal/apperr"
	"predictor/internal/config"
	"predictor/internal/logger"
	"predictor/internal/models"
	"predictor/internal/service/annotate"
	"predictor/internal/service/capture"
	"predictor/internal/service/storage"
)

type fakeModel struct {
	detections []models.Detection
	calls      int
	closed     bool
	err        error
}

func (m *fakeModel) Infer(frame gocv.Mat) ([]models.Detection, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.detections, nil
}

func (m *fakeModel) Device() string { return "cpu" }

func (m *fakeModel) Close() error {
	m.closed = true
	return nil
}

// fakeStream yields count black frames, then io.EOF.
type fakeStream struct {
	count  int
	next   int
	closed bool
}

func (s *fakeStream) Next(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}
	if s.next >= s.count {
		return models.Frame{}, io.EOF
	}
	s.next++
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 32, 32, gocv.MatTypeCV8UC3)
	return models.Frame{Mat: mat, Index: s.next - 1}, nil
}

func (s *fakeStream) Mode() capture.Mode { return capture.Stream }
func (s *fakeStream) FPS() float64       { return 30 }
func (s *fakeStream) Describe() string   { return "camera 0" }

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type countingSink struct {
	writes int
	quitAt int
	closed bool
}

func (s *countingSink) Write(_ models.Frame, _ gocv.Mat, _ []models.Detection) error {
	s.writes++
	if s.quitAt > 0 && s.writes == s.quitAt {
		return storage.ErrQuit
	}
	return nil
}

func (s *countingSink) Close() error {
	s.closed = true
	return nil
}

func testAnnotator() *annotate.Annotator {
	return annotate.NewAnnotator(&config.Config{LineWidth: 2, ShowLabels: true, ShowConf: true})
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer img.Close()
	if !gocv.IMWrite(path, img) {
		t.Fatalf("failed to write %s", path)
	}
}

func streamPipeline(model *fakeModel, src *fakeStream, sink *countingSink) *Pipeline {
	return &Pipeline{
		Command:  "media",
		Load:     func(context.Context) (Inferencer, error) { return model, nil },
		Open:     func(context.Context) (capture.FrameSource, error) { return src, nil },
		Sinks:    func(capture.FrameSource) (storage.Sinks, error) { return storage.Sinks{sink}, nil },
		Renderer: testAnnotator(),
		ShowFPS:  true,
		Logger:   logger.NewNop(),
	}
}

func TestPipeline_ImagesEndToEnd(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		path := filepath.Join(in, name)
		writeImage(t, path)
		paths = append(paths, path)
	}
	corrupt := filepath.Join(in, "broken.jpg")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	paths = append(paths[:1], append([]string{corrupt}, paths[1:]...)...)

	model := &fakeModel{detections: []models.Detection{
		{ClassID: 0, Label: "person", Confidence: 0.9, Box: rect(4, 4, 30, 40)},
	}}
	exp := storage.NewExperiment(out, "exp", nil)
	sink := storage.NewImageSink(exp, nil, logger.NewNop())

	p := &Pipeline{
		Command:    "images",
		Load:       func(context.Context) (Inferencer, error) { return model, nil },
		Open:       func(context.Context) (capture.FrameSource, error) { return capture.NewImageSet(paths), nil },
		Sinks:      func(capture.FrameSource) (storage.Sinks, error) { return storage.Sinks{sink}, nil },
		Renderer:   testAnnotator(),
		Experiment: exp,
		Logger:     logger.NewNop(),
	}

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 3 || summary.Skipped != 1 {
		t.Errorf("Expected 3 processed and 1 skipped, got %d and %d", summary.Processed, summary.Skipped)
	}
	if summary.State != StateDone {
		t.Errorf("Expected DONE, got %s", summary.State)
	}
	if summary.ExperimentDir != filepath.Join(out, "exp") {
		t.Errorf("Expected experiment dir %s, got %s", filepath.Join(out, "exp"), summary.ExperimentDir)
	}

	entries, err := os.ReadDir(filepath.Join(out, "exp"))
	if err != nil {
		t.Fatalf("Failed to list experiment dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	expected := []string{"output_a.png", "output_b.png", "output_c.png"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("Expected artifacts %v, got %v", expected, names)
	}
	if len(summary.Artifacts) != 3 {
		t.Errorf("Expected 3 artifacts in summary, got %v", summary.Artifacts)
	}
	if !model.closed {
		t.Error("Expected model to be released")
	}
}

func TestPipeline_MissingModelCreatesNothing(t *testing.T) {
	out := t.TempDir()
	exp := storage.NewExperiment(out, "exp", nil)
	opened := false

	p := &Pipeline{
		Command: "images",
		Load: func(context.Context) (Inferencer, error) {
			return nil, apperr.New(apperr.MissingModelFile, "model file not found: weights/none.onnx")
		},
		Open: func(context.Context) (capture.FrameSource, error) {
			opened = true
			return nil, errors.New("should not open")
		},
		Sinks: func(capture.FrameSource) (storage.Sinks, error) {
			return storage.Sinks{storage.NewImageSink(exp, nil, logger.NewNop())}, nil
		},
		Renderer:   testAnnotator(),
		Experiment: exp,
		Logger:     logger.NewNop(),
	}

	summary, err := p.Run(context.Background())
	if !apperr.Is(err, apperr.MissingModelFile) {
		t.Fatalf("Expected MissingModelFile, got %v", err)
	}
	if summary.State != StateFailed {
		t.Errorf("Expected FAILED, got %s", summary.State)
	}
	if opened {
		t.Error("Source should not be opened without a model")
	}
	if _, err := os.Stat(filepath.Join(out, "exp")); !os.IsNotExist(err) {
		t.Error("Expected no experiment directory")
	}
	if summary.ExperimentDir != "" {
		t.Errorf("Expected empty experiment dir, got %s", summary.ExperimentDir)
	}
}

func TestPipeline_StateTransitions(t *testing.T) {
	model := &fakeModel{}
	src := &fakeStream{count: 2}
	sink := &countingSink{}
	p := streamPipeline(model, src, sink)

	var states []State
	p.OnState = func(s State) { states = append(states, s) }

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := []State{StateInit, StateLoadingModel, StateReady, StateRunning, StateDone}
	if !reflect.DeepEqual(states, expected) {
		t.Errorf("Expected %v, got %v", expected, states)
	}
	if sink.writes != 2 {
		t.Errorf("Expected 2 writes, got %d", sink.writes)
	}
	if !src.closed || !sink.closed || !model.closed {
		t.Error("Expected source, sinks and model to be released")
	}
}

func TestPipeline_QuitStopsEarly(t *testing.T) {
	model := &fakeModel{}
	src := &fakeStream{count: 10}
	sink := &countingSink{quitAt: 3}

	summary, err := streamPipeline(model, src, sink).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !summary.Quit {
		t.Error("Expected Quit to be set")
	}
	if summary.Processed != 3 || model.calls != 3 {
		t.Errorf("Expected 3 frames, processed %d and inferred %d", summary.Processed, model.calls)
	}
	if !src.closed || !sink.closed {
		t.Error("Expected resources to be released after quit")
	}
}

func TestPipeline_InferenceFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("forward failed")}
	src := &fakeStream{count: 5}
	sink := &countingSink{}

	summary, err := streamPipeline(model, src, sink).Run(context.Background())
	if err == nil {
		t.Fatal("Expected an error")
	}
	if summary.State != StateFailed {
		t.Errorf("Expected FAILED, got %s", summary.State)
	}
	if sink.writes != 0 {
		t.Errorf("Expected no writes, got %d", sink.writes)
	}
	if !src.closed || !sink.closed || !model.closed {
		t.Error("Expected resources to be released after a failure")
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeStream{count: 5}
	summary, err := streamPipeline(&fakeModel{}, src, &countingSink{}).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !summary.Interrupted || summary.Processed != 0 {
		t.Errorf("Expected an interrupted run with no frames, got %+v", summary)
	}
}

func TestState_String(t *testing.T) {
	if StateLoadingModel.String() != "LOADING_MODEL" {
		t.Errorf("Unexpected name %q", StateLoadingModel.String())
	}
	if State(42).String() != "State(42)" {
		t.Errorf("Unexpected name %q", State(42).String())
	}
}

func rect(x0, y0, x1, y1 int) image.Rectangle {
	return image.Rect(x0, y0, x1, y1)
}
