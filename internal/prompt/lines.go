package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"predictor/internal/apperr"
)

// Lines is a Prompter that reads one answer per line. It backs non-interactive stdin and tests.
type Lines struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewLines creates a Lines prompter. Questions are echoed to out.
func NewLines(in io.Reader, out io.Writer) *Lines {
	if out == nil {
		out = io.Discard
	}
	return &Lines{in: bufio.NewScanner(in), out: out}
}

func (l *Lines) next(title string) (string, error) {
	fmt.Fprintf(l.out, "%s ", title)
	if !l.in.Scan() {
		if err := l.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(l.in.Text()), nil
}

// Ask implements Prompter.
func (l *Lines) Ask(title string) (string, error) {
	answer, err := l.next(title)
	if err == io.EOF {
		return "", apperr.New(apperr.UserCancelled, "no answer given")
	}
	return answer, err
}

// Confirm implements Prompter. Anything but y/yes is a no, as is end of input.
func (l *Lines) Confirm(question string) (bool, error) {
	answer, err := l.next(question + " (y/n):")
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	yes, _ := parseYesNo(answer)
	return yes, nil
}

// PickFile implements Prompter.
func (l *Lines) PickFile(title string, exts []string) (string, error) {
	answer, err := l.next(title)
	if err != nil && err != io.EOF {
		return "", err
	}
	if answer == "" {
		return "", apperr.New(apperr.UserCancelled, "no file selected")
	}
	files, err := expandPick(answer, exts)
	if err != nil {
		return "", err
	}
	return files[0], nil
}

// PickFiles implements Prompter. Several paths may be given on one line, separated by commas.
func (l *Lines) PickFiles(title string, exts []string) ([]string, error) {
	answer, err := l.next(title)
	if err != nil && err != io.EOF {
		return nil, err
	}

	var files []string
	for _, part := range strings.Split(answer, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		picked, err := expandPick(part, exts)
		if err != nil {
			return nil, err
		}
		files = append(files, picked...)
	}
	if len(files) == 0 {
		return nil, apperr.New(apperr.UserCancelled, "no files selected")
	}
	return files, nil
}
