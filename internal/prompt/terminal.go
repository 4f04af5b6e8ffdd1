package prompt

import (
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"predictor/internal/apperr"
)

// Terminal is the interactive Prompter built on huh forms.
type Terminal struct {
	dir string
}

// NewTerminal creates a Terminal whose file pickers start in dir (the working directory when empty).
func NewTerminal(dir string) *Terminal {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return &Terminal{dir: dir}
}

func run(field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return apperr.Wrap(apperr.UserCancelled, err, "prompt aborted")
	}
	return err
}

// Ask implements Prompter.
func (t *Terminal) Ask(title string) (string, error) {
	var answer string
	if err := run(huh.NewInput().Title(title).Value(&answer)); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// Confirm implements Prompter.
func (t *Terminal) Confirm(question string) (bool, error) {
	var yes bool
	field := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&yes)
	if err := run(field); err != nil {
		return false, err
	}
	return yes, nil
}

// PickFile implements Prompter.
func (t *Terminal) PickFile(title string, exts []string) (string, error) {
	path, err := t.pick(title, exts, false)
	if err != nil {
		return "", err
	}
	return path, nil
}

// PickFiles implements Prompter.
func (t *Terminal) PickFiles(title string, exts []string) ([]string, error) {
	path, err := t.pick(title, exts, true)
	if err != nil {
		return nil, err
	}
	return expandPick(path, exts)
}

func (t *Terminal) pick(title string, exts []string, dirAllowed bool) (string, error) {
	var path string
	field := huh.NewFilePicker().
		Title(title).
		CurrentDirectory(t.dir).
		AllowedTypes(exts).
		FileAllowed(true).
		DirAllowed(dirAllowed).
		Value(&path)
	if err := run(field); err != nil {
		return "", err
	}
	if path == "" {
		return "", apperr.New(apperr.UserCancelled, "no file selected")
	}
	return path, nil
}
