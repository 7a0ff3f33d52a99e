// Package sysfstest builds fake control-plane trees for tests.
package sysfstest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"codeberg.org/mutker/powerhald/internal/sysfs"
	"github.com/stretchr/testify/require"
)

// Tree is a temporary directory laid out like the device's /sys.
type Tree struct {
	t    testing.TB
	Root string
}

// New returns an empty tree.
func New(t testing.TB) *Tree {
	t.Helper()
	return &Tree{t: t, Root: t.TempDir()}
}

// Tegra returns a tree with every node the daemon touches on a grouper
// class device: interactive governor, cpuquiet, nvavp, cpufreq limits
// and one touchscreen at input0.
func Tegra(t testing.TB, maxFreq int) *Tree {
	t.Helper()
	tree := New(t)

	for _, knob := range []string{
		"boostpulse", "boostpulse_duration", "go_hispeed_load", "hispeed_freq",
		"io_is_busy", "min_sample_time", "target_loads",
	} {
		tree.Node(sysfs.InteractivePath+"/"+knob, "")
	}
	tree.Node(sysfs.CPUQuietPath+"/no_lp", "0")
	tree.Node(sysfs.CPUQuietPath+"/idle_top_freq", "475000")
	tree.Node(sysfs.NVAVPPath+"/boost_sclk", "0")
	tree.Node(sysfs.CPUFreqPath+"/scaling_max_freq", strconv.Itoa(maxFreq))
	tree.Node(sysfs.CPUFreqPath+"/scaling_available_frequencies",
		"51000 102000 204000 340000 475000 640000 760000 860000 1000000 1100000 1200000 1300000")
	tree.Input(0, "elan-touchscreen")
	tree.Node("dev/cpu_freq_min", "")
	tree.Node("dev/min_online_cpus", "")

	return tree
}

// Node creates rel with content, making parent directories.
func (tr *Tree) Node(rel, content string) {
	tr.t.Helper()
	path := filepath.Join(tr.Root, rel)
	require.NoError(tr.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tr.t, os.WriteFile(path, []byte(content), 0o644))
}

// Dir creates an empty directory.
func (tr *Tree) Dir(rel string) {
	tr.t.Helper()
	require.NoError(tr.t, os.MkdirAll(filepath.Join(tr.Root, rel), 0o755))
}

// Remove deletes rel and everything below it.
func (tr *Tree) Remove(rel string) {
	tr.t.Helper()
	require.NoError(tr.t, os.RemoveAll(filepath.Join(tr.Root, rel)))
}

// Input registers input device index with the kernel-style trailing
// newline on its name.
func (tr *Tree) Input(index int, name string) {
	tr.t.Helper()
	tr.Node(sysfs.InputNamePath(index), name+"\n")
	tr.Node(sysfs.InputEnabledPath(index), "1")
}

// Read returns the raw content of rel.
func (tr *Tree) Read(rel string) string {
	tr.t.Helper()
	data, err := os.ReadFile(filepath.Join(tr.Root, rel))
	require.NoError(tr.t, err)
	return string(data)
}

// Knob returns the content of an interactive governor knob.
func (tr *Tree) Knob(name string) string {
	tr.t.Helper()
	return strings.TrimSpace(tr.Read(sysfs.InteractivePath + "/" + name))
}
