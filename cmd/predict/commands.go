package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"predictor/internal/app"
	"predictor/internal/apperr"
	"predictor/internal/config"
	"predictor/internal/logger"
	"predictor/internal/prompt"
)

const (
	commandImages = app.CommandImages
	commandMedia  = app.CommandMedia
	commandScreen = app.CommandScreen
)

// Flags.
const (
	flagEnvFile    = "env-file"
	flagModel      = "model"
	flagModelURL   = "model-url"
	flagClasses    = "classes"
	flagConf       = "conf"
	flagIoU        = "iou"
	flagImgSize    = "imgsz"
	flagDevice     = "device"
	flagLineWidth  = "line-width"
	flagShowLabels = "show-labels"
	flagShowConf   = "show-conf"
	flagOutput     = "output"
	flagName       = "name"
	flagHeadless   = "headless"
	flagPreview    = "preview"
	flagToken      = "preview-token"
	flagDB         = "db"
	flagLogDir     = "log-dir"

	flagShow   = "show"
	flagSource = "source"
	flagVideo  = "video"
	flagCamera = "camera"
	flagSave   = "save"
	flagWindow = "window"
	flagFPS    = "fps"
)

// flagEnv maps every flag that overrides configuration to its environment variable.
var flagEnv = map[string]string{
	flagModel:      "MODEL_PATH",
	flagModelURL:   "MODEL_URL",
	flagClasses:    "CLASS_NAMES_PATH",
	flagConf:       "CONF_THRESHOLD",
	flagIoU:        "IOU_THRESHOLD",
	flagImgSize:    "IMG_SIZE",
	flagDevice:     "DEVICE",
	flagLineWidth:  "LINE_WIDTH",
	flagShowLabels: "SHOW_LABELS",
	flagShowConf:   "SHOW_CONF",
	flagOutput:     "OUTPUT_DIR",
	flagName:       "EXPERIMENT_NAME",
	flagHeadless:   "HEADLESS",
	flagPreview:    "PREVIEW_ADDR",
	flagToken:      "PREVIEW_TOKEN",
	flagDB:         "DB_PATH",
	flagLogDir:     "LOG_DIR",
	flagShow:       "SHOW",
	flagSource:     "SOURCE",
	flagVideo:      "VIDEO_PATH",
	flagCamera:     "CAMERA_INDEX",
	flagSave:       "SAVE",
	flagWindow:     "WINDOW_TITLE",
	flagFPS:        "SCREEN_FPS",
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: flagEnvFile, Value: config.DefaultEnvFile, Usage: "read settings from `FILE` when it exists"},
		&cli.StringFlag{Name: flagModel, Aliases: []string{"m"}, Usage: "weights `FILE`"},
		&cli.StringFlag{Name: flagModelURL, Usage: "download `URL` used when the weights file is missing"},
		&cli.StringFlag{Name: flagClasses, Usage: "class names `FILE`, one per line"},
		&cli.Float64Flag{Name: flagConf, Usage: "confidence threshold"},
		&cli.Float64Flag{Name: flagIoU, Usage: "NMS IoU threshold"},
		&cli.StringFlag{Name: flagImgSize, Usage: "network input `SIZE` (640 or 640x480)"},
		&cli.StringFlag{Name: flagDevice, Usage: "auto, cpu, cuda or cuda:N"},
		&cli.IntFlag{Name: flagLineWidth, Usage: "box line width"},
		&cli.BoolFlag{Name: flagShowLabels, Usage: "draw class names"},
		&cli.BoolFlag{Name: flagShowConf, Usage: "draw confidences"},
		&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "experiment root `DIR`"},
		&cli.StringFlag{Name: flagName, Usage: "experiment directory base `NAME`"},
		&cli.BoolFlag{Name: flagHeadless, Usage: "never open display windows"},
		&cli.StringFlag{Name: flagPreview, Usage: "serve the live preview on `ADDR`"},
		&cli.StringFlag{Name: flagToken, Usage: "require `TOKEN` on preview requests"},
		&cli.StringFlag{Name: flagDB, Usage: "run ledger `FILE`; empty disables it"},
		&cli.StringFlag{Name: flagLogDir, Usage: "log `DIR`"},
	}
}

// overrides collects the flags the operator set, at any command level.
func overrides(c *cli.Context) config.Overrides {
	o := config.Overrides{Values: make(map[string]string), Inputs: c.Args().Slice()}
	for name, env := range flagEnv {
		if c.IsSet(name) {
			o.Values[env] = flagValue(c, name)
		}
	}
	return o
}

func flagValue(c *cli.Context, name string) string {
	switch name {
	case flagConf, flagIoU, flagFPS:
		return strconv.FormatFloat(c.Float64(name), 'f', -1, 64)
	case flagLineWidth, flagCamera:
		return strconv.Itoa(c.Int(name))
	case flagShowLabels, flagShowConf, flagHeadless, flagShow:
		return strconv.FormatBool(c.Bool(name))
	}
	return c.String(name)
}

func newPrompter() prompt.Prompter {
	if info, err := os.Stdin.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		return prompt.NewTerminal("")
	}
	return prompt.NewLines(os.Stdin, os.Stdout)
}

func runCommand(command string) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load(c.String(flagEnvFile), overrides(c))
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		log, err := logger.NewLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer log.Close()

		application := app.NewApp(cfg, log, newPrompter())
		defer application.Close()

		_, err = application.Run(c.Context, command)
		return err
	}
}

// troubleshooting lists what the operator should check after a failure, per front end.
var troubleshooting = map[string][]string{
	commandImages: {
		"check that the image paths are correct",
		"check that the model file path is correct",
		"check that CUDA is available if GPU acceleration is requested",
		"try a smaller input size",
	},
	commandMedia: {
		"check that the camera is connected or the video path is correct",
		"check that the model file path is correct",
		"check that CUDA is available if GPU acceleration is requested",
		"try a smaller input size",
	},
	commandScreen: {
		"check that the window is open and its title matches",
		"check that ffmpeg and xdotool are installed and DISPLAY is set",
		"check that the model file path is correct",
		"check that CUDA is available if GPU acceleration is requested",
	},
}

// exitStatus reports err to the operator and returns the process exit code.
func exitStatus(w io.Writer, args []string, err error) int {
	if err == nil {
		return 0
	}

	switch apperr.KindOf(err) {
	case apperr.UserCancelled:
		fmt.Fprintf(w, "%v, exiting\n", err)
	case apperr.InvalidMenuChoice:
		fmt.Fprintf(w, "%v, exiting\n", err)
	default:
		fmt.Fprintf(w, "\nerror: %v\n", err)
		if steps, ok := troubleshooting[commandOf(args)]; ok {
			fmt.Fprintln(w, "troubleshooting:")
			for i, step := range steps {
				fmt.Fprintf(w, "%d. %s\n", i+1, step)
			}
		}
	}
	return apperr.ExitCode(err)
}

func commandOf(args []string) string {
	for _, arg := range args {
		if _, ok := troubleshooting[arg]; ok {
			return arg
		}
	}
	return ""
}
