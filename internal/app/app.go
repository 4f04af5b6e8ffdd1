// Package app wires configuration, the run ledger, the preview server and the detection pipeline
// into the three front ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"predictor/internal/config"
	"predictor/internal/logger"
	"predictor/internal/prompt"
	"predictor/internal/repository"
	"predictor/internal/repository/sqlite"
	"predictor/internal/route"
	"predictor/internal/service"
	"predictor/internal/service/ai"
	"predictor/internal/service/annotate"
	"predictor/internal/service/capture"
	"predictor/internal/service/storage"
	"predictor/internal/service/websocket"
)

// Front ends.
const (
	CommandImages = "images"
	CommandMedia  = "media"
	CommandScreen = "screen"
)

// Output names and window titles of the front ends.
const (
	mediaVideoName  = "output_inference.mp4"
	screenVideoName = "screen_inference.avi"
	imagesWindow    = "YOLO Detection"
	mediaWindow     = "YOLO Real-time Detection"
	screenWindow    = "Screen Detection"
	saveQuestion    = "Save the inference video?"
)

const previewShutdownTimeout = 2 * time.Second

// SourceOpener opens the frame source for a descriptor.
type SourceOpener func(ctx context.Context, desc capture.Descriptor) (capture.FrameSource, error)

// App runs the front ends against one configuration.
type App struct {
	config     *config.Config
	logger     *logger.Logger
	prompter   prompt.Prompter
	db         *sqlite.DB
	runs       repository.RunRepository
	artifacts  repository.ArtifactRepository
	detections repository.DetectionRepository
	hubService *websocket.HubService
	headless   bool

	loadModel  service.ModelLoader
	openSource SourceOpener
	openWriter storage.WriterOpener
}

// Option replaces a collaborator of App.
type Option func(*App)

// WithModelLoader replaces the OpenCV DNN detector.
func WithModelLoader(load service.ModelLoader) Option {
	return func(a *App) { a.loadModel = load }
}

// WithSourceOpener replaces the capture backends.
func WithSourceOpener(open SourceOpener) Option {
	return func(a *App) { a.openSource = open }
}

// WithWriterOpener replaces the OpenCV video writer.
func WithWriterOpener(open storage.WriterOpener) Option {
	return func(a *App) { a.openWriter = open }
}

// NewApp creates an App. When the ledger database cannot be opened the runs are not recorded and a
// warning is logged.
func NewApp(cfg *config.Config, logger *logger.Logger, prompter prompt.Prompter, opts ...Option) *App {
	a := &App{
		config:   cfg,
		logger:   logger,
		prompter: prompter,
		headless: cfg.Headless || storage.HeadlessEnvironment(),
	}
	a.loadModel = a.loadDetector
	a.openSource = func(ctx context.Context, desc capture.Descriptor) (capture.FrameSource, error) {
		return capture.Open(ctx, desc, a.config)
	}
	a.openWriter = storage.OpenVideoWriter
	for _, opt := range opts {
		opt(a)
	}

	if cfg.DBPath != "" {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			logger.Warning("Run ledger disabled: %v", err)
		} else {
			a.db = db
			a.runs = sqlite.NewRunRepository(db)
			a.artifacts = sqlite.NewArtifactRepository(db)
			a.detections = sqlite.NewDetectionRepository(db)
		}
	}
	return a
}

// Close releases the ledger database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) loadDetector(ctx context.Context) (service.Inferencer, error) {
	detector, err := ai.Load(ctx, a.config, a.logger, ai.Options{})
	if err != nil {
		return nil, err
	}
	return detector, nil
}

func (a *App) newLedger() *storage.Ledger {
	if a.runs == nil {
		return nil
	}
	return storage.NewLedger(a.runs, a.artifacts, a.detections, a.logger)
}

// Run executes one front end: it resolves the source with the operator, then runs the pipeline.
func (a *App) Run(ctx context.Context, command string) (service.Summary, error) {
	stopPreview := a.startPreview(ctx)
	defer stopPreview()

	desc, save, err := a.choose(command)
	if err != nil {
		return service.Summary{State: service.StateInit}, err
	}

	ledger := a.newLedger()
	experiment := storage.NewExperiment(a.config.OutputDirectory, a.config.ExperimentName, ledger.SetExperimentDir)

	p := &service.Pipeline{
		Command: command,
		Source:  desc.String(),
		Load:    a.loadModel,
		Open: func(ctx context.Context) (capture.FrameSource, error) {
			return a.openSource(ctx, desc)
		},
		Sinks: func(src capture.FrameSource) (storage.Sinks, error) {
			return a.sinks(command, src, experiment, ledger, save), nil
		},
		Renderer:   annotate.NewAnnotator(a.config),
		Experiment: experiment,
		Ledger:     ledger,
		ShowFPS:    desc.Kind == capture.KindCamera,
		Logger:     a.logger,
	}

	summary, err := p.Run(ctx)
	if err == nil {
		a.report(command, summary)
	}
	return summary, err
}

// choose resolves the source descriptor and, for stream front ends, whether to save a video.
func (a *App) choose(command string) (capture.Descriptor, bool, error) {
	switch command {
	case CommandImages:
		desc, err := capture.ChooseImages(a.prompter, a.config)
		return desc, true, err
	case CommandMedia:
		desc, err := capture.ChooseMedia(a.prompter, a.config)
		if err != nil {
			return desc, false, err
		}
		save, err := a.askSave()
		return desc, save, err
	case CommandScreen:
		save, err := a.askSave()
		return capture.Descriptor{Kind: capture.KindScreen, WindowTitle: a.config.WindowTitle}, save, err
	}
	return capture.Descriptor{}, false, fmt.Errorf("unknown command %q", command)
}

func (a *App) askSave() (bool, error) {
	switch a.config.Save {
	case config.SaveYes:
		return true, nil
	case config.SaveNo:
		return false, nil
	}
	return a.prompter.Confirm(saveQuestion)
}

// sinks builds the outputs of a front end. File sinks come first so a quit key never loses the
// frame it was pressed on.
func (a *App) sinks(command string, src capture.FrameSource, experiment *storage.Experiment,
	ledger *storage.Ledger, save bool) storage.Sinks {
	var sinks storage.Sinks

	switch command {
	case CommandImages:
		sinks = append(sinks, storage.NewImageSink(experiment, ledger, a.logger))
		if a.config.Show {
			sinks = append(sinks, storage.NewDisplaySink(imagesWindow, 0, a.headless, a.logger))
		}
	case CommandMedia:
		if save {
			sinks = append(sinks, storage.NewVideoSink(experiment, mediaVideoName, a.config.VideoCodec,
				src.FPS(), a.openWriter, ledger, a.logger))
		}
		sinks = append(sinks, storage.NewDisplaySink(mediaWindow, 1, a.headless, a.logger))
	case CommandScreen:
		if save {
			sinks = append(sinks, storage.NewVideoSink(experiment, screenVideoName, a.config.ScreenCodec,
				a.config.ScreenFPS, a.openWriter, ledger, a.logger))
		}
		sinks = append(sinks, storage.NewDisplaySink(screenWindow, 1, a.headless, a.logger))
	}

	if a.hubService != nil {
		sinks = append(sinks, storage.NewPreviewSink(a.hubService, src.Describe()))
	}
	return sinks
}

func (a *App) report(command string, summary service.Summary) {
	if command == CommandImages {
		a.logger.Info("detection finished | processed: %d | skipped: %d", summary.Processed, summary.Skipped)
	} else {
		a.logger.Info("detection finished | frames: %d", summary.Processed)
	}
	if summary.ExperimentDir == "" {
		a.logger.Info("no results were saved")
		return
	}
	a.logger.Info("results directory: %s", summary.ExperimentDir)
}

// startPreview serves the preview hub and the ledger API while a front end runs. The returned
// function stops both.
func (a *App) startPreview(ctx context.Context) func() {
	if a.config.PreviewAddr == "" {
		return func() {}
	}

	hubCtx, cancel := context.WithCancel(ctx)
	a.hubService = websocket.NewHubService(a.logger)
	go a.hubService.Run(hubCtx)

	server := &http.Server{
		Addr:    a.config.PreviewAddr,
		Handler: route.SetupRoutes(a.hubService, a.config, a.logger, a.runs, a.artifacts),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Preview server failed: %v", err)
		}
	}()
	a.logger.Info("preview available at ws://%s/api/preview", a.config.PreviewAddr)

	return func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), previewShutdownTimeout)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warning("Preview server shutdown: %v", err)
		}
		cancel()
		<-a.hubService.Done()
		a.hubService = nil
	}
}
