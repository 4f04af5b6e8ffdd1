package config

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Save answers for the stream front ends.
const (
	SaveAsk = "ask"
	SaveYes = "yes"
	SaveNo  = "no"
)

// DefaultEnvFile is read before the environment when it exists.
const DefaultEnvFile = ".env"

// Config is the run configuration. It is built once by Load and never modified afterwards.
type Config struct {
	ModelPath      string  // local weights file (ONNX or any format OpenCV DNN reads)
	ModelURL       string  // fallback download URL when ModelPath is missing
	ClassNamesPath string  // one class name per line; empty means COCO-80
	ConfThreshold  float64 // minimum detection confidence
	IoUThreshold   float64 // non-max suppression overlap
	ImgSize        image.Point
	LineWidth      int
	ShowLabels     bool
	ShowConf       bool
	Device         string // auto, cpu, cuda, cuda:N

	OutputDirectory string // experiment directories are created under it
	ExperimentName  string
	Save            string // SaveAsk, SaveYes or SaveNo; stream front ends only
	Show            bool   // display annotated images in the image front end
	Headless        bool
	VideoCodec      string
	PreviewAddr     string // empty disables the websocket preview server
	PreviewToken    string // required by the preview server when set
	DBPath          string // empty disables the run ledger
	LogDirectory    string

	Inputs       []string // image files or directories
	Source       string   // camera or video; empty asks
	VideoPath    string
	CameraIndex  int
	CameraWidth  int
	CameraHeight int
	WindowTitle  string
	ScreenFPS    float64
	ScreenCodec  string
}

// Overrides carries command-line values. Values is keyed by environment variable name and wins
// over the environment.
type Overrides struct {
	Values map[string]string
	Inputs []string
}

type loader struct {
	overrides map[string]string
}

// Load reads envFile (when present), the environment and overrides, and validates the result.
func Load(envFile string, o Overrides) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	l := loader{overrides: o.Values}
	cfg := &Config{
		ModelPath:       l.getEnv("MODEL_PATH", filepath.Join("weights", "yolo11n.onnx")),
		ModelURL:        l.getEnv("MODEL_URL", ""),
		ClassNamesPath:  l.getEnv("CLASS_NAMES_PATH", ""),
		ConfThreshold:   l.getEnvAsFloat("CONF_THRESHOLD", 0.25),
		IoUThreshold:    l.getEnvAsFloat("IOU_THRESHOLD", 0.45),
		LineWidth:       l.getEnvAsInt("LINE_WIDTH", 2),
		ShowLabels:      l.getEnvAsBool("SHOW_LABELS", true),
		ShowConf:        l.getEnvAsBool("SHOW_CONF", true),
		Device:          strings.ToLower(l.getEnv("DEVICE", "auto")),
		OutputDirectory: l.getEnv("OUTPUT_DIR", filepath.Join(cwd, "predict")),
		ExperimentName:  l.getEnv("EXPERIMENT_NAME", "exp"),
		Save:            strings.ToLower(l.getEnv("SAVE", SaveAsk)),
		Show:            l.getEnvAsBool("SHOW", false),
		Headless:        l.getEnvAsBool("HEADLESS", false),
		VideoCodec:      l.getEnv("VIDEO_CODEC", "mp4v"),
		PreviewAddr:     l.getEnv("PREVIEW_ADDR", ""),
		PreviewToken:    l.getEnv("PREVIEW_TOKEN", ""),
		DBPath:          l.getEnv("DB_PATH", filepath.Join(cwd, "predict", "runs.db")),
		LogDirectory:    l.getEnv("LOG_DIR", filepath.Join(".", "logs")),
		Source:          strings.ToLower(l.getEnv("SOURCE", "")),
		VideoPath:       l.getEnv("VIDEO_PATH", ""),
		CameraIndex:     l.getEnvAsInt("CAMERA_INDEX", 0),
		CameraWidth:     l.getEnvAsInt("CAMERA_WIDTH", 720),
		CameraHeight:    l.getEnvAsInt("CAMERA_HEIGHT", 720),
		WindowTitle:     l.getEnv("WINDOW_TITLE", "Flappy Bird"),
		ScreenFPS:       l.getEnvAsFloat("SCREEN_FPS", 20),
		ScreenCodec:     l.getEnv("SCREEN_CODEC", "XVID"),
		Inputs:          append([]string(nil), o.Inputs...),
	}

	size, err := ParseImgSize(l.getEnv("IMG_SIZE", "640"))
	if err != nil {
		return nil, err
	}
	cfg.ImgSize = size

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH must not be empty")
	}
	if c.ConfThreshold < 0 || c.ConfThreshold > 1 {
		return fmt.Errorf("CONF_THRESHOLD must be in [0,1], got %v", c.ConfThreshold)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("IOU_THRESHOLD must be in [0,1], got %v", c.IoUThreshold)
	}
	if c.ImgSize.X <= 0 || c.ImgSize.Y <= 0 {
		return fmt.Errorf("IMG_SIZE must be positive, got %dx%d", c.ImgSize.X, c.ImgSize.Y)
	}
	if c.LineWidth <= 0 {
		return fmt.Errorf("LINE_WIDTH must be positive, got %d", c.LineWidth)
	}
	if c.ExperimentName == "" {
		return fmt.Errorf("EXPERIMENT_NAME must not be empty")
	}
	switch c.Save {
	case SaveAsk, SaveYes, SaveNo:
	default:
		return fmt.Errorf("SAVE must be one of ask, yes, no; got %q", c.Save)
	}
	switch c.Source {
	case "", "camera", "video":
	default:
		return fmt.Errorf("SOURCE must be camera or video, got %q", c.Source)
	}
	if len(c.VideoCodec) != 4 || len(c.ScreenCodec) != 4 {
		return fmt.Errorf("video codecs must be four characters")
	}
	if c.ScreenFPS <= 0 {
		return fmt.Errorf("SCREEN_FPS must be positive, got %v", c.ScreenFPS)
	}
	return nil
}

// ParseImgSize accepts "640" (square) or "WIDTHxHEIGHT".
func ParseImgSize(s string) (image.Point, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if w, h, ok := strings.Cut(s, "x"); ok {
		width, errW := strconv.Atoi(strings.TrimSpace(w))
		height, errH := strconv.Atoi(strings.TrimSpace(h))
		if errW != nil || errH != nil || width <= 0 || height <= 0 {
			return image.Point{}, fmt.Errorf("invalid IMG_SIZE %q", s)
		}
		return image.Pt(width, height), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return image.Point{}, fmt.Errorf("invalid IMG_SIZE %q", s)
	}
	return image.Pt(n, n), nil
}

func (l loader) lookup(key string) (string, bool) {
	if value, ok := l.overrides[key]; ok {
		return value, true
	}
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	return "", false
}

func (l loader) getEnv(key, defaultValue string) string {
	if value, ok := l.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (l loader) getEnvAsInt(key string, defaultValue int) int {
	if value, ok := l.lookup(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (l loader) getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, ok := l.lookup(key); ok {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func (l loader) getEnvAsBool(key string, defaultValue bool) bool {
	if value, ok := l.lookup(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
