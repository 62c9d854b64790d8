package resource

import (
	"fmt"

	"github.com/veccore/coreq/internal/core"
)

// Config is the resource-graph construction input, one field per
// enumerated option.
type Config struct {
	Mode             string // only "simple" is supported; other names reduce to it
	GPUSearchPool    []int
	GPUBuildPool     []int
	DiskCPUBandwidth int
	CPUGPUBandwidth  int
}

// DeviceName returns the canonical resource name for a GPU device id.
func DeviceName(deviceID int) string {
	return fmt.Sprintf("gpu:%d", deviceID)
}

// BuildFromConfig constructs a disk/cpu/gpu* graph per the predefined
// link topology: disk <-> cpu at DiskCPUBandwidth, cpu <-> each gpu
// device at CPUGPUBandwidth. It returns validation warnings rather than
// errors for conditions that narrow behavior without making the graph
// unusable — currently, a device id present in both gpu_search_pool and
// gpu_build_pool, which is not deduplicated into two resources: it gets
// one shared resource node and one shared DevicePermit.
func BuildFromConfig(cfg Config) (*Graph, []string, error) {
	var warnings []string

	g := NewGraph()
	if _, err := g.Add("disk", core.ResourceDisk, -1); err != nil {
		return nil, nil, err
	}
	if _, err := g.Add("cpu", core.ResourceCPU, -1); err != nil {
		return nil, nil, err
	}
	if err := g.Connect("disk", "cpu", cfg.DiskCPUBandwidth); err != nil {
		return nil, nil, err
	}

	inSearch := make(map[int]bool, len(cfg.GPUSearchPool))
	for _, id := range cfg.GPUSearchPool {
		inSearch[id] = true
	}
	inBuild := make(map[int]bool, len(cfg.GPUBuildPool))
	for _, id := range cfg.GPUBuildPool {
		inBuild[id] = true
	}

	seen := make(map[int]bool)
	addDevice := func(id int) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		if inSearch[id] && inBuild[id] {
			warnings = append(warnings, fmt.Sprintf(
				"gpu device %d appears in both gpu_search_pool and gpu_build_pool; sharing one resource and one build permit", id))
		}
		if _, err := g.Add(DeviceName(id), core.ResourceGPU, id); err != nil {
			return err
		}
		return g.Connect("cpu", DeviceName(id), cfg.CPUGPUBandwidth)
	}

	for _, id := range cfg.GPUSearchPool {
		if err := addDevice(id); err != nil {
			return nil, nil, err
		}
	}
	for _, id := range cfg.GPUBuildPool {
		if err := addDevice(id); err != nil {
			return nil, nil, err
		}
	}

	return g, warnings, nil
}
