package services

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"gridwatch/internal/models"
)

const gb = 1024 * 1024 * 1024

// SystemService reports host health for the settings panel
type SystemService struct {
	started time.Time
}

// NewSystemService returns a service anchored at process start
func NewSystemService() *SystemService {
	return &SystemService{started: time.Now()}
}

// Health collects current host readings
func (s *SystemService) Health() (*models.SystemHealth, error) {
	percentage, err := cpu.Percent(0, false)
	if err != nil {
		return nil, fmt.Errorf("cpu usage: %w", err)
	}

	virtualMemory, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("memory usage: %w", err)
	}

	usage, err := disk.Usage("/")
	if err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}

	return &models.SystemHealth{
		CPUPercent:    percentage[0],
		MemoryTotalGB: float64(virtualMemory.Total) / gb,
		MemoryUsedGB:  float64(virtualMemory.Used) / gb,
		MemoryPercent: virtualMemory.UsedPercent,
		DiskTotalGB:   float64(usage.Total) / gb,
		DiskUsedGB:    float64(usage.Used) / gb,
		DiskPercent:   usage.UsedPercent,
		UptimeSeconds: time.Since(s.started).Seconds(),
	}, nil
}
