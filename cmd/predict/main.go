package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCLI().RunContext(ctx, os.Args)
	stop()
	os.Exit(exitStatus(os.Stderr, os.Args, err))
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "predict",
		Usage: "run YOLO detection on images, camera or video streams and application windows",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			{
				Name:      commandImages,
				Usage:     "detect objects in image files or folders",
				ArgsUsage: "[FILE|DIR]...",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: flagShow, Usage: "display every result and wait for a key (q stops)"},
				},
				Action: runCommand(commandImages),
			},
			{
				Name:  commandMedia,
				Usage: "detect objects on a camera or in a video file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagSource, Usage: "`camera` or `video`; asks when unset"},
					&cli.StringFlag{Name: flagVideo, Usage: "video `FILE`; opens the picker when unset"},
					&cli.IntFlag{Name: flagCamera, Usage: "camera device `INDEX`"},
					&cli.StringFlag{Name: flagSave, Usage: "save the annotated video: ask, yes or no"},
				},
				Action: runCommand(commandMedia),
			},
			{
				Name:  commandScreen,
				Usage: "detect objects in an application window",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagWindow, Usage: "window `TITLE` to capture"},
					&cli.Float64Flag{Name: flagFPS, Usage: "capture and video frame rate"},
					&cli.StringFlag{Name: flagSave, Usage: "save the annotated video: ask, yes or no"},
				},
				Action: runCommand(commandScreen),
			},
		},
	}
}
