// Package render dispatches filter-graph programs to the FFmpeg engine
// under bounded concurrency, per spec.md §4.9 and §5.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"compositor/pkg/eventlog"
	"compositor/pkg/ffmpeg"
	"compositor/pkg/graph"
)

// Mode selects the output profile, per spec.md §4.9.
type Mode int

const (
	ModeFinal Mode = iota
	ModePreview
	ModeStill
)

const (
	defaultFinalTimeout = 600 * time.Second
	defaultFastTimeout  = 120 * time.Second
	previewMaxWidth     = 1280
	previewMaxHeight    = 720
)

// EngineError reports a non-zero engine exit, carrying its stderr tail for
// diagnosis, per spec.md §4.9.
type EngineError struct {
	Stderr string
	Err    error
}

func (e *EngineError) Error() string { return fmt.Sprintf("engine failed: %v: %s", e.Err, e.Stderr) }
func (e *EngineError) Unwrap() error { return e.Err }

// EngineTimeout reports that the engine was killed after exceeding its
// wall-clock budget.
type EngineTimeout struct {
	Timeout time.Duration
}

func (e *EngineTimeout) Error() string {
	return fmt.Sprintf("engine exceeded %s wall-clock timeout", e.Timeout)
}

// Request describes one render job: a finished filter-graph program plus
// the canvas/timing metadata needed to pick encoder parameters.
type Request struct {
	Program    graph.Program
	Width      int
	Height     int
	FPS        int
	Duration   float64
	Mode       Mode
	OutputPath string
}

// Dispatcher owns the render semaphore and the engine binaries, and turns
// Requests into supervised FFmpeg subprocesses.
type Dispatcher struct {
	engine        *ffmpeg.Engine
	newProcess    ffmpeg.NewProcessFunc
	logger        *eventlog.Logger
	sem           chan struct{}
	filterThreads int

	finalTimeout time.Duration
	fastTimeout  time.Duration
}

// NewDispatcher returns a Dispatcher with a semaphore of the given
// capacity. concurrency and filterThreads should come from
// sysinfo.DefaultRenderConcurrency and cpu/2, respectively (spec.md §5).
func NewDispatcher(engine *ffmpeg.Engine, concurrency, filterThreads int, logger *eventlog.Logger) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if filterThreads < 2 {
		filterThreads = 2
	}
	return &Dispatcher{
		engine:        engine,
		newProcess:    ffmpeg.NewProcess,
		logger:        logger,
		sem:           make(chan struct{}, concurrency),
		filterThreads: filterThreads,
		finalTimeout:  defaultFinalTimeout,
		fastTimeout:   defaultFastTimeout,
	}
}

// SetNewProcessFunc overrides the process constructor, used by tests to
// inject ffmock.
func (d *Dispatcher) SetNewProcessFunc(f ffmpeg.NewProcessFunc) { d.newProcess = f }

// SetTimeouts overrides the default wall-clock budgets for final renders
// and for preview/still renders.
func (d *Dispatcher) SetTimeouts(final, fast time.Duration) {
	d.finalTimeout = final
	d.fastTimeout = fast
}

// Occupancy reports the semaphore's total capacity and how many slots are
// currently held, for the status endpoint (spec.md §5).
func (d *Dispatcher) Occupancy() (total, busy int) {
	return cap(d.sem), len(d.sem)
}

// Render acquires a semaphore slot, builds the engine invocation for req,
// and blocks until the engine exits or the timeout elapses.
func (d *Dispatcher) Render(ctx context.Context, req Request) error {
	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-d.sem }()

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	args := d.buildArgs(req)
	cmd := d.engine.Command(args...)
	proc := d.newProcess(cmd)

	timeout := d.fastTimeout
	if req.Mode == ModeFinal {
		timeout = d.finalTimeout
	}
	proc.SetTimeout(2 * time.Second)
	if d.logger != nil {
		proc.SetStderrLogger(d.logger)
		proc.SetPrefix(fmt.Sprintf("render[%s]: ", filepath.Base(req.OutputPath)))
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := proc.Start(runCtx)
	if runCtx.Err() == context.DeadlineExceeded {
		return &EngineTimeout{Timeout: timeout}
	}
	if err != nil {
		return &EngineError{Stderr: proc.Stderr(), Err: err}
	}
	return nil
}

func (d *Dispatcher) buildArgs(req Request) []string {
	var args []string
	args = append(args, "-hide_banner", "-loglevel", "error", "-nostdin", "-threads", "0", "-y")

	for _, in := range req.Program.Inputs {
		args = append(args, "-i", in)
	}

	args = append(args, "-filter_complex_threads", strconv.Itoa(d.filterThreads))
	args = append(args, "-filter_complex", req.Program.FilterComplex)

	switch req.Mode {
	case ModeStill:
		args = append(args,
			"-map", fmt.Sprintf("[%s]", req.Program.VideoOut),
			"-frames:v", "1",
			req.OutputPath)
	case ModePreview:
		w, h := fitWithin(req.Width, req.Height, previewMaxWidth, previewMaxHeight)
		args = append(args,
			"-map", fmt.Sprintf("[%s]", req.Program.VideoOut),
			"-c:v", "libx264", "-pix_fmt", "yuv420p", "-preset", "ultrafast", "-crf", "28",
			"-vf", fmt.Sprintf("scale=%d:%d", w, h),
			"-r", strconv.Itoa(req.FPS),
		)
		if req.Program.HasAudio {
			args = append(args,
				"-map", fmt.Sprintf("[%s]", req.Program.AudioOut),
				"-c:a", "aac")
		} else {
			args = append(args, "-an")
		}
		args = append(args, "-movflags", "+faststart", req.OutputPath)
	default: // ModeFinal
		args = append(args,
			"-map", fmt.Sprintf("[%s]", req.Program.VideoOut),
			"-c:v", "libx264", "-pix_fmt", "yuv420p", "-preset", "veryfast", "-crf", "20",
			"-r", strconv.Itoa(req.FPS),
		)
		if req.Program.HasAudio {
			args = append(args,
				"-map", fmt.Sprintf("[%s]", req.Program.AudioOut),
				"-c:a", "aac")
		} else {
			args = append(args, "-an")
		}
		args = append(args, "-movflags", "+faststart", req.OutputPath)
	}

	return args
}

// fitWithin scales (w,h) down to fit within (maxW,maxH), preserving aspect
// ratio, and never upscales.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return evenize(w), evenize(h)
	}
	ratio := float64(w) / float64(h)
	outW, outH := maxW, int(float64(maxW)/ratio)
	if outH > maxH {
		outH = maxH
		outW = int(float64(maxH) * ratio)
	}
	return evenize(outW), evenize(outH)
}

// evenize rounds down to an even number; libx264's yuv420p requires even
// dimensions.
func evenize(v int) int {
	if v%2 != 0 {
		v--
	}
	if v < 2 {
		v = 2
	}
	return v
}
