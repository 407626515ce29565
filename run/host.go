package run

import (
	"encoding/json"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo is the provenance snapshot attached to every persisted run, so
// a verdict can later be traced to the machine that produced it.
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platformVersion"`
	KernelVersion   string `json:"kernelVersion"`
	Arch            string `json:"arch"`
	NumCPU          int    `json:"numCpu"`
	TotalMemoryMB   uint64 `json:"totalMemoryMb"`
}

// SnapshotHost collects the current host's identity. Failures leave the
// affected fields empty rather than failing the run.
func SnapshotHost() HostInfo {
	info := HostInfo{
		Arch:   runtime.GOARCH,
		NumCPU: runtime.NumCPU(),
	}
	if stat, err := host.Info(); err == nil {
		info.Hostname = stat.Hostname
		info.OS = stat.OS
		info.Platform = stat.Platform
		info.PlatformVersion = stat.PlatformVersion
		info.KernelVersion = stat.KernelVersion
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemoryMB = vm.Total / (1024 * 1024)
	}
	return info
}

// JSON renders the snapshot for storage; errors degrade to an empty
// object.
func (h HostInfo) JSON() string {
	data, err := json.Marshal(h)
	if err != nil {
		return "{}"
	}
	return string(data)
}
