package resource

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veccore/coreq/internal/core"
)

func TestAddRejectsDuplicateName(t *testing.T) {
	g := NewGraph()
	_, err := g.Add("cpu", core.ResourceCPU, -1)
	require.NoError(t, err)

	_, err = g.Add("cpu", core.ResourceCPU, -1)
	require.Error(t, err)
}

func TestConnectRejectsMissingEndpoint(t *testing.T) {
	g := NewGraph()
	_, err := g.Add("cpu", core.ResourceCPU, -1)
	require.NoError(t, err)

	err = g.Connect("cpu", "disk", 500)
	require.Error(t, err)
}

func TestConnectRejectsDuplicateEdge(t *testing.T) {
	g := NewGraph()
	_, _ = g.Add("disk", core.ResourceDisk, -1)
	_, _ = g.Add("cpu", core.ResourceCPU, -1)
	require.NoError(t, g.Connect("disk", "cpu", 500))

	err := g.Connect("disk", "cpu", 500)
	require.Error(t, err)
}

func TestStartForbidsFurtherMutation(t *testing.T) {
	g := NewGraph()
	_, _ = g.Add("disk", core.ResourceDisk, -1)
	_, _ = g.Add("cpu", core.ResourceCPU, -1)
	require.NoError(t, g.Connect("disk", "cpu", 500))

	g.Start()

	_, err := g.Add("gpu:0", core.ResourceGPU, 0)
	require.Error(t, err)

	err = g.Connect("disk", "cpu", 1)
	require.Error(t, err)
}

func buildThreeTierGraph(t *testing.T) *Graph {
	t.Helper()
	g, warnings, err := BuildFromConfig(Config{
		Mode:             "simple",
		GPUSearchPool:    []int{0, 1},
		GPUBuildPool:     []int{1, 2},
		DiskCPUBandwidth: 500,
		CPUGPUBandwidth:  12000,
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1, "device 1 appears in both pools")
	return g
}

func TestBuildFromConfigTopology(t *testing.T) {
	g := buildThreeTierGraph(t)

	for _, name := range []string{"disk", "cpu", "gpu:0", "gpu:1", "gpu:2"} {
		_, ok := g.Resource(name)
		require.True(t, ok, "missing resource %s", name)
	}
	require.Len(t, g.Resources(), 5)
}

func TestShortestPathDiskToGPUGoesThroughCPU(t *testing.T) {
	g := buildThreeTierGraph(t)

	r, path, err := g.ShortestPath("disk", core.ResourceGPU)
	require.NoError(t, err)
	require.Equal(t, "gpu:0", r.Name(), "tie broken by lowest device id")
	require.Equal(t, []string{"disk", "cpu", "gpu:0"}, path)
}

func TestShortestPathUnknownKindErrors(t *testing.T) {
	g := NewGraph()
	_, _ = g.Add("disk", core.ResourceDisk, -1)

	_, _, err := g.ShortestPath("disk", core.ResourceGPU)
	require.Error(t, err)
}

func TestGPUResourceCarriesOneDevicePermit(t *testing.T) {
	g := buildThreeTierGraph(t)
	gpu0, _ := g.Resource("gpu:0")
	require.NotNil(t, gpu0.DevicePermit)
	require.Len(t, gpu0.DevicePermit, 1)

	cpu, _ := g.Resource("cpu")
	require.Nil(t, cpu.DevicePermit)
}
