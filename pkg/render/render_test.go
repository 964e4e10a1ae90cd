package render

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"compositor/pkg/ffmpeg"
	"compositor/pkg/ffmpeg/ffmock"
	"compositor/pkg/graph"
)

func newTestDispatcher(t *testing.T, concurrency int) *Dispatcher {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	probeBin := filepath.Join(t.TempDir(), "ffprobe")
	require.NoError(t, os.WriteFile(probeBin, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	engine, err := ffmpeg.NewEngine(bin, probeBin)
	require.NoError(t, err)

	return NewDispatcher(engine, concurrency, 2, nil)
}

func simpleProgram() graph.Program {
	return graph.Program{
		Inputs:        nil,
		FilterComplex: "color=c=black:s=640x480:d=1[base1];[base1]null[vfinal];anullsrc=channel_layout=stereo:sample_rate=48000,atrim=duration=1[aout]",
		VideoOut:      "vfinal",
		AudioOut:      "aout",
		HasAudio:      true,
	}
}

func TestRenderBuildsFinalArgs(t *testing.T) {
	d := newTestDispatcher(t, 1)
	req := Request{
		Program: simpleProgram(), Width: 640, Height: 480, FPS: 30, Duration: 1,
		Mode: ModeFinal, OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	}
	args := d.buildArgs(req)
	idx := indexOf(args, "-crf")
	require.Equal(t, "20", args[idx+1])
	require.Contains(t, args, "veryfast")
	require.Contains(t, args, "-c:a")
}

func TestRenderBuildsPreviewArgsDownscales(t *testing.T) {
	d := newTestDispatcher(t, 1)
	req := Request{
		Program: simpleProgram(), Width: 3840, Height: 2160, FPS: 30, Duration: 1,
		Mode: ModePreview, OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	}
	args := d.buildArgs(req)
	require.Contains(t, args, "ultrafast")
	idx := indexOf(args, "-crf")
	require.Equal(t, "28", args[idx+1])
	vfIdx := indexOf(args, "-vf")
	require.Contains(t, args[vfIdx+1], "scale=1280:720")
}

func TestRenderStillArgsSingleFrame(t *testing.T) {
	d := newTestDispatcher(t, 1)
	req := Request{
		Program: simpleProgram(), Width: 640, Height: 480, FPS: 30,
		Mode: ModeStill, OutputPath: filepath.Join(t.TempDir(), "out.png"),
	}
	args := d.buildArgs(req)
	idx := indexOf(args, "-frames:v")
	require.GreaterOrEqual(t, idx, 0)
	require.Equal(t, "1", args[idx+1])
}

func TestRenderNoAudioAddsAn(t *testing.T) {
	d := newTestDispatcher(t, 1)
	prog := simpleProgram()
	prog.HasAudio = false
	req := Request{Program: prog, Width: 640, Height: 480, FPS: 30, Mode: ModeFinal, OutputPath: filepath.Join(t.TempDir(), "o.mp4")}
	args := d.buildArgs(req)
	require.Contains(t, args, "-an")
}

func TestRenderSucceedsWithMockProcess(t *testing.T) {
	d := newTestDispatcher(t, 1)
	d.SetNewProcessFunc(ffmock.NewProcessNil)
	req := Request{
		Program: simpleProgram(), Width: 640, Height: 480, FPS: 30, Duration: 1,
		Mode: ModeStill, OutputPath: filepath.Join(t.TempDir(), "out.png"),
	}
	require.NoError(t, d.Render(context.Background(), req))
}

func TestRenderSurfacesEngineError(t *testing.T) {
	d := newTestDispatcher(t, 1)
	d.SetNewProcessFunc(ffmock.NewProcessErr)
	req := Request{
		Program: simpleProgram(), Width: 640, Height: 480, FPS: 30, Duration: 1,
		Mode: ModeStill, OutputPath: filepath.Join(t.TempDir(), "out.png"),
	}
	err := d.Render(context.Background(), req)
	require.Error(t, err)
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	require.Contains(t, engineErr.Stderr, "mock stderr tail")
}

func TestRenderTimesOut(t *testing.T) {
	d := newTestDispatcher(t, 1)
	d.SetNewProcessFunc(ffmock.NewProcessMocker(ffmock.MockProcessConfig{Sleep: time.Second}))
	d.SetTimeouts(10*time.Millisecond, 10*time.Millisecond)
	req := Request{
		Program: simpleProgram(), Width: 640, Height: 480, FPS: 30, Duration: 1,
		Mode: ModeStill, OutputPath: filepath.Join(t.TempDir(), "out.png"),
	}
	err := d.Render(context.Background(), req)
	require.Error(t, err)
	var timeoutErr *EngineTimeout
	require.ErrorAs(t, err, &timeoutErr)
}

// TestRenderBoundsConcurrency verifies the semaphore never lets more than
// capacity render jobs run at once, per spec.md §5.
func TestRenderBoundsConcurrency(t *testing.T) {
	const capacity = 2
	d := newTestDispatcher(t, capacity)
	d.SetNewProcessFunc(ffmock.NewProcessMocker(ffmock.MockProcessConfig{Sleep: 40 * time.Millisecond}))

	var maxConcurrent int32

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := Request{
				Program: simpleProgram(), Width: 640, Height: 480, FPS: 30, Duration: 1,
				Mode: ModeStill, OutputPath: filepath.Join(t.TempDir(), "out.png"),
			}
			require.NoError(t, d.Render(context.Background(), req))
		}()
	}

	// Poll occupancy from outside the render calls to observe the bound
	// without instrumenting Render itself.
	deadline := time.After(200 * time.Millisecond)
poll:
	for {
		select {
		case <-deadline:
			break poll
		default:
			_, busy := d.Occupancy()
			if int32(busy) > atomic.LoadInt32(&maxConcurrent) {
				atomic.StoreInt32(&maxConcurrent, int32(busy))
			}
			time.Sleep(2 * time.Millisecond)
		}
	}
	wg.Wait()

	require.LessOrEqual(t, int(atomic.LoadInt32(&maxConcurrent)), capacity)
	total, busy := d.Occupancy()
	require.Equal(t, capacity, total)
	require.Equal(t, 0, busy)
}

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}
