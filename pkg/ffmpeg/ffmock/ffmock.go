// Package ffmock provides a fake ffmpeg.Process for exercising the render
// dispatcher's timeout and cancellation logic without running a real
// engine binary.
package ffmock

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"compositor/pkg/eventlog"
	"compositor/pkg/ffmpeg"
)

// MockProcessConfig configures a mocked process.
type MockProcessConfig struct {
	ReturnErr bool
	Sleep     time.Duration
	Stderr    string
	OnStop    func()
}

// NewProcessMocker creates a ffmpeg.NewProcessFunc from config.
func NewProcessMocker(c MockProcessConfig) func(*exec.Cmd) ffmpeg.Process {
	return func(*exec.Cmd) ffmpeg.Process {
		return &mockProcess{c: c}
	}
}

type mockProcess struct {
	c MockProcessConfig
}

func (m *mockProcess) Start(ctx context.Context) error {
	if m.c.Sleep != 0 {
		select {
		case <-time.After(m.c.Sleep):
		case <-ctx.Done():
			if m.c.OnStop != nil {
				m.c.OnStop()
			}
			return ctx.Err()
		}
	}
	if m.c.ReturnErr {
		return errors.New("mock engine failure")
	}
	return nil
}

func (m *mockProcess) SetTimeout(time.Duration)            {}
func (m *mockProcess) SetPrefix(string)                    {}
func (m *mockProcess) SetStdoutLogger(*eventlog.Logger)    {}
func (m *mockProcess) SetStderrLogger(*eventlog.Logger)    {}
func (m *mockProcess) Stderr() string                      { return m.c.Stderr }

// NewProcess sleeps 15ms then succeeds.
var NewProcess = NewProcessMocker(MockProcessConfig{Sleep: 15 * time.Millisecond})

// NewProcessNil returns immediately with no error.
var NewProcessNil = NewProcessMocker(MockProcessConfig{})

// NewProcessErr returns an error immediately.
var NewProcessErr = NewProcessMocker(MockProcessConfig{ReturnErr: true, Stderr: "mock stderr tail"})
