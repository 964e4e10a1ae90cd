// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package sysinfo reports host resource usage for the status endpoint and
// picks a sane default render concurrency from the real CPU count.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Status is a point-in-time snapshot of host resource usage plus the
// dispatcher's render-semaphore occupancy.
type Status struct {
	CPUUsagePercent  int   `json:"cpuUsagePercent"`
	RAMUsagePercent  int   `json:"ramUsagePercent"`
	DiskUsageBytes   int64 `json:"diskUsageBytes"`
	RenderSlotsTotal int   `json:"renderSlotsTotal"`
	RenderSlotsBusy  int   `json:"renderSlotsBusy"`
}

type (
	cpuFunc  func(context.Context, time.Duration, bool) ([]float64, error)
	ramFunc  func() (*mem.VirtualMemoryStat, error)
	diskFunc func(string) int64
)

// Monitor samples CPU/RAM/disk usage on an interval and serves the latest
// snapshot without blocking callers on the sampling goroutine.
type Monitor struct {
	cpu  cpuFunc
	ram  ramFunc
	disk diskFunc

	mediaRoot string
	occupancy func() (total, busy int)

	mu       sync.Mutex
	status   Status
	interval time.Duration
	once     sync.Once
}

// NewMonitor returns a Monitor that reports disk usage under mediaRoot and
// render-slot occupancy from occupancy.
func NewMonitor(mediaRoot string, occupancy func() (total, busy int)) *Monitor {
	return &Monitor{
		cpu:       cpu.PercentWithContext,
		ram:       mem.VirtualMemory,
		disk:      diskUsage,
		mediaRoot: mediaRoot,
		occupancy: occupancy,
		interval:  10 * time.Second,
	}
}

func (m *Monitor) sample(ctx context.Context) error {
	cpuUsage, err := m.cpu(ctx, m.interval, false)
	if err != nil {
		return fmt.Errorf("cpu usage: %w", err)
	}
	ramUsage, err := m.ram()
	if err != nil {
		return fmt.Errorf("ram usage: %w", err)
	}
	total, busy := m.occupancy()

	var cpuPercent int
	if len(cpuUsage) > 0 {
		cpuPercent = int(cpuUsage[0])
	}

	m.mu.Lock()
	m.status = Status{
		CPUUsagePercent:  cpuPercent,
		RAMUsagePercent:  int(ramUsage.UsedPercent),
		DiskUsageBytes:   m.disk(m.mediaRoot),
		RenderSlotsTotal: total,
		RenderSlotsBusy:  busy,
	}
	m.mu.Unlock()
	return nil
}

// Run samples in a loop until ctx is canceled. Meant to run in its own
// goroutine; errors are swallowed into a stale-but-present snapshot since
// the status endpoint is best-effort.
func (m *Monitor) Run(ctx context.Context, onError func(error)) {
	m.once.Do(func() {
		for {
			if ctx.Err() != nil {
				return
			}
			if err := m.sample(ctx); err != nil && onError != nil {
				onError(err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.interval):
			}
		}
	})
}

// Status returns the latest sampled snapshot, with render-slot occupancy
// read live from the dispatcher.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	s := m.status
	m.mu.Unlock()
	s.RenderSlotsTotal, s.RenderSlotsBusy = m.occupancy()
	return s
}

func diskUsage(root string) int64 {
	var used int64
	filepath.Walk(root, func(_ string, info os.FileInfo, err error) error { //nolint:errcheck
		if info != nil && !info.IsDir() {
			used += info.Size()
		}
		return nil
	})
	return used
}

// DefaultRenderConcurrency returns max(1, cpu/2), the dispatcher's default
// semaphore capacity per spec.md §5.
func DefaultRenderConcurrency(cpuCount int) int {
	n := cpuCount / 2
	if n < 1 {
		n = 1
	}
	return n
}
