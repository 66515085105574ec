// Package media captures and plays recordings through ffmpeg and ffplay.
package media

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/aretw0/voxnotes/pkg/core"
)

// StopTimeout bounds how long a capture may take to finalize its file.
const StopTimeout = 5 * time.Second

// Config selects the binaries and the capture source.
type Config struct {
	// Dir receives the recordings.
	Dir string
	// Prefix starts every file name, usually the category.
	Prefix string
	// InputFormat and Input are passed as "-f <fmt> -i <input>".
	InputFormat string
	Input       string
	FFmpeg      string
	FFplay      string
	Logger      *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// DefaultInput returns the capture source of the platform's default microphone.
func DefaultInput() (format, input string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "alsa", "default"
	}
}

// Device implements core.AudioDevice. Recordings are AMR narrowband at 8 kHz
// in a 3GP container, which is what the recognizer is configured for.
type Device struct {
	cfg Config

	mu          sync.Mutex
	capture     *exec.Cmd
	capturePath string
	captureDone chan error
	player      *exec.Cmd
}

// NewDevice creates a device.
func NewDevice(cfg Config) *Device {
	if cfg.InputFormat == "" || cfg.Input == "" {
		cfg.InputFormat, cfg.Input = DefaultInput()
	}
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	if cfg.FFplay == "" {
		cfg.FFplay = "ffplay"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "note"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Device{cfg: cfg}
}

// NextPath returns the file name a capture started now would use.
func (d *Device) NextPath() string {
	name := fmt.Sprintf("%s_%s.3gp", d.cfg.Prefix, d.cfg.Clock().Format("20060102_150405"))
	return filepath.Join(d.cfg.Dir, name)
}

// CaptureArgs builds the ffmpeg command line writing to path.
func (d *Device) CaptureArgs(path string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", d.cfg.InputFormat, "-i", d.cfg.Input,
		"-ac", "1", "-ar", "8000",
		"-c:a", "libopencore_amrnb", "-b:a", "12.2k",
		path,
	}
}

// PlayArgs builds the ffplay command line for path.
func (d *Device) PlayArgs(path string) []string {
	return []string{"-nodisp", "-autoexit", "-loglevel", "error", path}
}

// StartCapture implements core.AudioDevice.
func (d *Device) StartCapture() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capture != nil {
		return "", core.ErrAlreadyRecording
	}
	if err := os.MkdirAll(d.cfg.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create recordings directory: %w", err)
	}

	path := d.NextPath()
	cmd := exec.Command(d.cfg.FFmpeg, d.CaptureArgs(path)...)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	d.capture = cmd
	d.capturePath = path
	d.captureDone = done
	d.cfg.Logger.Debug("capture started", "path", path, "pid", cmd.Process.Pid)
	return path, nil
}

// StopCapture implements core.AudioDevice. ffmpeg is interrupted so it can
// finalize the container; it is killed if it does not exit in time.
func (d *Device) StopCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capture == nil {
		return core.ErrNotRecording
	}
	cmd, path, done := d.capture, d.capturePath, d.captureDone
	d.capture, d.capturePath, d.captureDone = nil, "", nil

	if err := interrupt(cmd.Process); err != nil {
		_ = cmd.Process.Kill()
	}

	var waitErr error
	select {
	case waitErr = <-done:
	case <-time.After(StopTimeout):
		_ = cmd.Process.Kill()
		waitErr = <-done
	}

	// ffmpeg reports a non-zero status when stopped by a signal; the file decides.
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		if waitErr == nil {
			waitErr = errors.New("no audio written")
		}
		return fmt.Errorf("ffmpeg: %w", waitErr)
	}
	d.cfg.Logger.Debug("capture stopped", "path", path, "bytes", info.Size())
	return nil
}

// Play implements core.AudioDevice.
func (d *Device) Play(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopPlayer()

	cmd := exec.Command(d.cfg.FFplay, d.PlayArgs(path)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffplay: %w", err)
	}
	d.player = cmd
	go func() {
		_ = cmd.Wait()
		d.mu.Lock()
		if d.player == cmd {
			d.player = nil
		}
		d.mu.Unlock()
	}()
	return nil
}

// Stop implements core.AudioDevice. It is a no-op without playback.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopPlayer()
	return nil
}

// Playing reports whether a playback is running.
func (d *Device) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.player != nil
}

func (d *Device) stopPlayer() {
	if d.player == nil {
		return
	}
	_ = d.player.Process.Kill()
	d.player = nil
}

func interrupt(p *os.Process) error {
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(os.Interrupt)
}

var _ core.AudioDevice = (*Device)(nil)
