package weights

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Probe reports whether a CUDA accelerator is usable.
type Probe func() bool

// NvidiaProbe looks for the NVIDIA kernel driver or the nvidia-smi tool.
func NvidiaProbe() bool {
	if _, err := os.Stat("/proc/driver/nvidia/version"); err == nil {
		return true
	}
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// ResolveDevice maps the requested device to a concrete one. "auto" (or empty) picks cuda:0 when probe
// reports an accelerator and cpu otherwise.
func ResolveDevice(requested string, probe Probe) (string, error) {
	device := strings.ToLower(strings.TrimSpace(requested))
	switch {
	case device == "" || device == "auto":
		if probe != nil && probe() {
			return "cuda:0", nil
		}
		return "cpu", nil
	case device == "cpu":
		return device, nil
	case device == "cuda":
		return "cuda:0", nil
	case strings.HasPrefix(device, "cuda:"):
		if _, err := strconv.Atoi(strings.TrimPrefix(device, "cuda:")); err != nil {
			return "", fmt.Errorf("invalid device %q", requested)
		}
		return device, nil
	case isDigits(device):
		return "cuda:" + device, nil
	}
	return "", fmt.Errorf("invalid device %q", requested)
}

// IsCUDA reports whether device names a CUDA device.
func IsCUDA(device string) bool {
	return strings.HasPrefix(device, "cuda")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
