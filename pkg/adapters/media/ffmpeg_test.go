package media

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/voxnotes/pkg/core"
)

func fixedClock() time.Time {
	return time.Date(2024, 1, 2, 15, 4, 5, 0, time.Local)
}

func TestDevice_NextPath(t *testing.T) {
	d := NewDevice(Config{Dir: "/rec", Prefix: "ToDos", Clock: fixedClock})
	assert.Equal(t, filepath.Join("/rec", "ToDos_20240102_150405.3gp"), d.NextPath())
}

func TestDevice_Args(t *testing.T) {
	d := NewDevice(Config{Dir: "/rec", InputFormat: "pulse", Input: "mic"})

	args := d.CaptureArgs("/rec/a.3gp")
	assert.Subset(t, args, []string{"-f", "pulse", "-i", "mic", "-ac", "1", "-ar", "8000", "libopencore_amrnb"})
	assert.Equal(t, "/rec/a.3gp", args[len(args)-1])

	play := d.PlayArgs("/rec/a.3gp")
	assert.Equal(t, []string{"-nodisp", "-autoexit", "-loglevel", "error", "/rec/a.3gp"}, play)
}

func TestDevice_StopWithoutCapture(t *testing.T) {
	d := NewDevice(Config{Dir: t.TempDir()})
	assert.ErrorIs(t, d.StopCapture(), core.ErrNotRecording)
	assert.NoError(t, d.Stop())
	assert.False(t, d.Playing())
}

// fakeFFmpeg writes the output file when interrupted, like ffmpeg finalizing.
const fakeFFmpeg = `#!/bin/sh
for a; do out=$a; done
trap 'printf "#!AMR\n" > "$out"; exit 255' INT
while :; do sleep 0.05; done
`

func TestDevice_CaptureLifecycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte(fakeFFmpeg), 0755))

	d := NewDevice(Config{Dir: filepath.Join(dir, "rec"), Prefix: "ToDos", FFmpeg: bin, Clock: fixedClock})

	path, err := d.StartCapture()
	require.NoError(t, err)
	_, err = d.StartCapture()
	assert.ErrorIs(t, err, core.ErrAlreadyRecording)

	// Give the shell time to install its trap.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, d.StopCapture())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!AMR\n", string(data))
}
