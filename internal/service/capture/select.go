package capture

import (
	"os"

	"predictor/internal/apperr"
	"predictor/internal/config"
	"predictor/internal/prompt"
)

// MediaMenu is the camera or video question of the media front end.
const MediaMenu = "Choose the input source: [1] camera  [2] video file. Enter 1 or 2:"

// ChooseMedia resolves the media front end's source. A configured SOURCE skips the menu; otherwise
// "1" selects the camera, "2" opens the video picker and anything else is InvalidMenuChoice.
func ChooseMedia(p prompt.Prompter, cfg *config.Config) (Descriptor, error) {
	choice := cfg.Source
	if choice == "" {
		answer, err := p.Ask(MediaMenu)
		if err != nil {
			return Descriptor{}, err
		}
		switch answer {
		case "1":
			choice = "camera"
		case "2":
			choice = "video"
		default:
			return Descriptor{}, apperr.New(apperr.InvalidMenuChoice, "invalid input %q", answer)
		}
	}

	if choice == "camera" {
		return Descriptor{Kind: KindCamera, Device: cfg.CameraIndex}, nil
	}

	path := cfg.VideoPath
	if path == "" {
		picked, err := p.PickFile("Select a video file", prompt.VideoExtensions)
		if err != nil {
			if apperr.Is(err, apperr.UserCancelled) {
				return Descriptor{}, apperr.Wrap(apperr.UserCancelled, err, "no video file selected")
			}
			return Descriptor{}, err
		}
		path = picked
	}
	if _, err := os.Stat(path); err != nil {
		return Descriptor{}, apperr.Wrap(apperr.MissingInputPath, err, "video file does not exist: %s", path)
	}
	return Descriptor{Kind: KindVideo, VideoPath: path}, nil
}

// ChooseImages resolves the image front end's inputs: the configured paths when given, otherwise
// the operator's pick. No images at all is UserCancelled.
func ChooseImages(p prompt.Prompter, cfg *config.Config) (Descriptor, error) {
	var paths []string
	if len(cfg.Inputs) > 0 {
		expanded, err := ExpandImagePaths(cfg.Inputs)
		if err != nil {
			return Descriptor{}, err
		}
		paths = expanded
	} else {
		picked, err := p.PickFiles("Select images to run detection on", prompt.ImageExtensions)
		if err != nil {
			return Descriptor{}, err
		}
		paths = picked
	}

	if len(paths) == 0 {
		return Descriptor{}, apperr.New(apperr.UserCancelled, "no images selected")
	}
	return Descriptor{Kind: KindImages, Paths: paths}, nil
}
