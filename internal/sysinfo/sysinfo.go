// file: internal/sysinfo/sysinfo.go
// version: 2.0.0
// guid: 7a8b9c0d-1e2f-3a4b-5c6d-7e8f9a0b1c2d

// Package sysinfo reports process and host resource usage for the
// status endpoint.
package sysinfo

import (
	"runtime"
)

// hostMemory is replaced in tests.
var hostMemory = readHostMemory

// Memory describes host memory. Zero totals mean the platform is not
// supported.
type Memory struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

// Process describes the running importer.
type Process struct {
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes"`
	SysBytes     uint64 `json:"sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}

// Snapshot is a point-in-time resource reading.
type Snapshot struct {
	Host    Memory  `json:"memory"`
	Process Process `json:"runtime"`
}

// Read takes a snapshot of host memory and Go runtime statistics.
func Read() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Snapshot{
		Host: hostMemoryStats(),
		Process: Process{
			GoVersion:    runtime.Version(),
			OS:           runtime.GOOS,
			Arch:         runtime.GOARCH,
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			HeapAlloc:    ms.HeapAlloc,
			SysBytes:     ms.Sys,
			NumGC:        ms.NumGC,
		},
	}
}

func hostMemoryStats() Memory {
	total, available := hostMemory()
	if total == 0 {
		return Memory{}
	}
	if available > total {
		available = total
	}
	used := total - available
	return Memory{
		TotalBytes:     total,
		AvailableBytes: available,
		UsedBytes:      used,
		UsedPercent:    float64(used) / float64(total) * 100,
	}
}
