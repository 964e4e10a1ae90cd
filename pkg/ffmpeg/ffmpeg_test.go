package ffmpeg

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"compositor/pkg/eventlog"
)

func TestFakeProcess(t *testing.T) {
	if os.Getenv("GO_TEST_PROCESS") != "1" {
		return
	}
	fmt.Fprintf(os.Stdout, "%v", "out")
	fmt.Fprintf(os.Stderr, "%v", "err")
	os.Exit(0)
}

func fakeExecCommand(env ...string) *exec.Cmd {
	cmd := exec.Command(os.Args[0], "-test.run=TestFakeProcess")
	cmd.Env = append([]string{"GO_TEST_PROCESS=1"}, env...)
	return cmd
}

func TestProcessRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewProcess(fakeExecCommand())
	require.NoError(t, p.Start(ctx))
}

func TestProcessWithLogger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := eventlog.NewLogger()
	logger.Start(ctx)
	feed, unsub := logger.Subscribe()
	defer unsub()

	p := NewProcess(fakeExecCommand())
	p.SetTimeout(0)
	p.SetPrefix("test ")
	p.SetStdoutLogger(logger)
	p.SetStderrLogger(logger)

	require.NoError(t, p.Start(ctx))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case log := <-feed:
			seen[log.Msg] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for process output")
		}
	}
	require.True(t, seen["test out"])
	require.True(t, seen["test err"])
}

func TestProcessStopOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.Command("sleep", "5")
	p := NewProcess(cmd)
	p.SetTimeout(10 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("process was not stopped")
	}
}

func TestNewEngine(t *testing.T) {
	dir := t.TempDir()
	ffmpegPath := filepath.Join(dir, "ffmpeg")
	ffprobePath := filepath.Join(dir, "ffprobe")
	require.NoError(t, os.WriteFile(ffmpegPath, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(ffprobePath, []byte("#!/bin/sh\n"), 0o755))

	e, err := NewEngine(ffmpegPath, ffprobePath)
	require.NoError(t, err)
	require.NotNil(t, e)

	_, err = NewEngine(filepath.Join(dir, "missing"), ffprobePath)
	require.Error(t, err)
}

func TestRenderFallbackCircle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.png")
	err := RenderFallbackCircle(path, 32, color.RGBA{R: 255, A: 255})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.Size() > 0)
}
