package ai

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"predictor/internal/apperr"
	"predictor/internal/config"
	"predictor/internal/logger"
	"predictor/internal/models"
	"predictor/internal/service/ai/yolo"
	"predictor/internal/service/weights"
)

// Detector runs a YOLO network through the OpenCV DNN module.
type Detector struct {
	net        gocv.Net
	outNames   []string
	names      []string
	inputSize  image.Point
	confidence float32
	iou        float32
	device     string
	logger     *logger.Logger
	mu         sync.Mutex
}

// Options are the collaborators of Load that tests and front ends may replace.
type Options struct {
	Fetcher weights.Fetcher
	Probe   weights.Probe
}

// Load resolves the weights (downloading them when a fallback URL is configured), binds the network to
// the resolved device and reads the class names.
func Load(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*Detector, error) {
	if opts.Fetcher == nil {
		opts.Fetcher = weights.GetterFetcher{}
	}
	if opts.Probe == nil {
		opts.Probe = weights.NvidiaProbe
	}

	path, err := weights.Resolve(ctx, cfg.ModelPath, cfg.ModelURL, opts.Fetcher)
	if err != nil {
		return nil, err
	}
	device, err := weights.ResolveDevice(cfg.Device, opts.Probe)
	if err != nil {
		return nil, err
	}
	names, err := LoadClassNames(cfg.ClassNamesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		return nil, apperr.New(apperr.MissingModelFile, "failed to load network from %s", path)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if weights.IsCUDA(device) {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	errBackend := net.SetPreferableBackend(backend)
	errTarget := net.SetPreferableTarget(target)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target for %s", device)
	}

	d := &Detector{
		net:        net,
		outNames:   outputNames(net),
		names:      names,
		inputSize:  cfg.ImgSize,
		confidence: float32(cfg.ConfThreshold),
		iou:        float32(cfg.IoUThreshold),
		device:     device,
		logger:     log,
	}
	log.Info("model loaded | device: %s", strings.ToUpper(device))
	return d, nil
}

func outputNames(net gocv.Net) []string {
	layers := net.GetLayerNames()
	var names []string
	for _, id := range net.GetUnconnectedOutLayers() {
		if id > 0 && id <= len(layers) {
			names = append(names, layers[id-1])
		}
	}
	return names
}

// Device returns the device the network is bound to, e.g. "cpu" or "cuda:0".
func (d *Detector) Device() string {
	return d.device
}

// ClassNames returns the label list, indexed by class id.
func (d *Detector) ClassNames() []string {
	return d.names
}

// Infer runs the network on frame and returns detections sorted by confidence.
func (d *Detector) Infer(frame gocv.Mat) ([]models.Detection, error) {
	if frame.Empty() {
		return nil, apperr.New(apperr.UnreadableFrame, "empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(frame, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outputs := d.net.ForwardLayers(d.outNames)
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	var head, protoMat *gocv.Mat
	for i := range outputs {
		switch len(outputs[i].Size()) {
		case 3:
			head = &outputs[i]
		case 4:
			protoMat = &outputs[i]
		}
	}
	if head == nil {
		return nil, fmt.Errorf("network produced no detection output")
	}

	var protos *yolo.Protos
	coeffs := 0
	if protoMat != nil {
		data, err := protoMat.DataPtrFloat32()
		if err != nil {
			return nil, fmt.Errorf("failed to read prototype output: %w", err)
		}
		if protos, err = yolo.NewProtos(protoMat.Size(), data); err != nil {
			return nil, err
		}
		coeffs = protos.Count
	}

	layout, err := yolo.NewLayout(head.Size(), coeffs)
	if err != nil {
		return nil, err
	}
	data, err := head.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read detection output: %w", err)
	}

	frameSize := image.Pt(frame.Cols(), frame.Rows())
	cands, err := yolo.Decode(data, layout, d.confidence, d.inputSize, frameSize)
	if err != nil {
		return nil, err
	}

	var detections []models.Detection
	for classID, idx := range yolo.ByClass(cands) {
		boxes := make([]image.Rectangle, len(idx))
		scores := make([]float32, len(idx))
		for j, i := range idx {
			boxes[j] = cands[i].Box
			scores[j] = cands[i].Score
		}
		for _, k := range gocv.NMSBoxes(boxes, scores, d.confidence, d.iou) {
			c := cands[idx[k]]
			det := models.Detection{
				ClassID:    classID,
				Label:      className(d.names, classID),
				Confidence: c.Score,
				Box:        c.Box,
			}
			if protos != nil {
				det.Mask = protos.Mask(c.Coeffs, c.Box, frameSize)
			}
			detections = append(detections, det)
		}
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})
	return detections, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
