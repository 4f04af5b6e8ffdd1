package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"predictor/internal/apperr"
	"predictor/internal/logger"
	"predictor/internal/models"
	"predictor/internal/service/annotate"
	"predictor/internal/service/capture"
	"predictor/internal/service/storage"
)

// State is a stage of a pipeline run.
type State int

const (
	StateInit State = iota
	StateLoadingModel
	StateReady
	StateRunning
	StateDone
	StateFailed
)

var stateNames = [...]string{"INIT", "LOADING_MODEL", "READY", "RUNNING", "DONE", "FAILED"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Inferencer produces detections for one frame.
type Inferencer interface {
	Infer(frame gocv.Mat) ([]models.Detection, error)
	Device() string
	Close() error
}

// Renderer draws detections onto a copy of a frame.
type Renderer interface {
	Render(frame gocv.Mat, detections []models.Detection) (gocv.Mat, error)
}

// ModelLoader loads the model once per run.
type ModelLoader func(ctx context.Context) (Inferencer, error)

// SourceOpener opens the frame source once the model is ready.
type SourceOpener func(ctx context.Context) (capture.FrameSource, error)

// SinkFactory builds the sinks for an opened source; video sinks need its frame rate.
type SinkFactory func(src capture.FrameSource) (storage.Sinks, error)

// Pipeline runs capture, inference, annotation and persistence for one front end.
type Pipeline struct {
	Command  string
	Source   string // description recorded in the ledger
	Load     ModelLoader
	Open     SourceOpener
	Sinks    SinkFactory
	Renderer Renderer
	// Experiment is reported in the summary when the run created it.
	Experiment *storage.Experiment
	Ledger     *storage.Ledger
	// ShowFPS draws the frame rate in the corner of every annotated frame.
	ShowFPS bool
	Logger  *logger.Logger
	// OnState observes every state transition.
	OnState func(State)

	state State
}

// Summary is the outcome of a run.
type Summary struct {
	State         State
	Processed     int
	Skipped       int
	Artifacts     []string
	Quit          bool // the operator pressed q
	Interrupted   bool // the context was cancelled
	Device        string
	ExperimentDir string
}

func (p *Pipeline) setState(s State) {
	p.state = s
	if p.OnState != nil {
		p.OnState(s)
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes the pipeline until the source ends, the operator quits, ctx is cancelled or a step
// fails. Every resource acquired by the run is released before Run returns.
func (p *Pipeline) Run(ctx context.Context) (summary Summary, err error) {
	p.setState(StateInit)
	p.Ledger.Begin(p.Command, p.Source)

	defer func() {
		if p.Experiment != nil {
			summary.ExperimentDir, _ = p.Experiment.Created()
		}
		status := models.RunDone
		switch {
		case err != nil:
			p.setState(StateFailed)
			status = models.RunFailed
			if apperr.Is(err, apperr.UserCancelled) {
				status = models.RunCancelled
			}
		default:
			p.setState(StateDone)
			if summary.Quit || summary.Interrupted {
				status = models.RunCancelled
			}
		}
		summary.State = p.state
		p.Ledger.Finish(status, summary.Processed, summary.Skipped, err)
	}()

	p.setState(StateLoadingModel)
	model, err := p.Load(ctx)
	if err != nil {
		return summary, err
	}
	defer func() { err = multierr.Append(err, model.Close()) }()
	summary.Device = model.Device()
	p.Ledger.SetDevice(summary.Device)

	p.setState(StateReady)
	src, err := p.Open(ctx)
	if err != nil {
		return summary, err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()
	p.Logger.Info("input source: %s", src.Describe())

	sinks, err := p.Sinks(src)
	if err != nil {
		return summary, err
	}
	defer func() { err = multierr.Append(err, sinks.Close()) }()

	p.setState(StateRunning)
	err = p.loop(ctx, src, model, sinks, &summary)
	summary.Artifacts = sinks.Artifacts()
	return summary, err
}

func (p *Pipeline) loop(ctx context.Context, src capture.FrameSource, model Inferencer, sinks storage.Sinks, summary *Summary) error {
	last := time.Time{}
	for {
		frame, err := src.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			if ctx.Err() != nil {
				summary.Interrupted = true
				return nil
			}
			if src.Mode() == capture.Stream {
				p.Logger.Info("video stream ended or was interrupted")
			}
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			summary.Interrupted = true
			return nil
		case apperr.Is(err, apperr.UnreadableFrame):
			p.Logger.Warning("%v, skipping", err)
			summary.Skipped++
			continue
		case err != nil:
			return err
		}

		if src.Mode() == capture.Batch {
			p.Logger.Info("processing image: %s", frame.Name)
		}

		quit, err := p.process(frame, src, model, sinks, &last)
		frame.Close()
		if err != nil {
			return err
		}
		summary.Processed++
		if quit {
			summary.Quit = true
			return nil
		}
		if ctx.Err() != nil {
			summary.Interrupted = true
			return nil
		}
	}
}

// process runs INFER, ANNOTATE and PERSIST for one frame. It reports whether the operator quit.
func (p *Pipeline) process(frame models.Frame, src capture.FrameSource, model Inferencer, sinks storage.Sinks, last *time.Time) (bool, error) {
	detections, err := model.Infer(frame.Mat)
	if err != nil {
		return false, fmt.Errorf("inference failed on frame %d: %w", frame.Index, err)
	}

	annotated, err := p.Renderer.Render(frame.Mat, detections)
	if err != nil {
		return false, fmt.Errorf("annotation failed on frame %d: %w", frame.Index, err)
	}
	defer annotated.Close()

	if p.ShowFPS {
		now := time.Now()
		fps := src.FPS()
		if fps <= 0 && !last.IsZero() {
			fps = 1 / now.Sub(*last).Seconds()
		}
		*last = now
		if err := annotate.Overlay(&annotated, fmt.Sprintf("FPS: %.2f", fps)); err != nil {
			return false, err
		}
	}

	err = sinks.Write(frame, annotated, detections)
	if errors.Is(err, storage.ErrQuit) {
		return true, nil
	}
	return false, err
}
