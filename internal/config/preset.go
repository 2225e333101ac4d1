package config

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/workflow"
)

// ClusterQsubArgs are the default qsub arguments of the cluster presets, before the queue.
const ClusterQsubArgs = "-S /bin/bash -pe smp1 1-4 -l mem_free=4000M -o /dev/null -e /dev/null "

// ClusterSlots bounds the number of jobs a cluster preset keeps submitted at once.
const ClusterSlots = 100

type preset struct {
	plugin  workflow.Plugin
	nProcs  int
	cluster bool
}

var presets = map[string]preset{
	"local":              {plugin: workflow.Linear, nProcs: 1},
	"local_4":            {plugin: workflow.MultiProc, nProcs: 4},
	"local_12":           {plugin: workflow.MultiProc, nProcs: 12},
	"helium_all.q":       {plugin: workflow.SGE, nProcs: ClusterSlots, cluster: true},
	"helium_all.q_graph": {plugin: workflow.SGEGraph, nProcs: ClusterSlots, cluster: true},
	"ipl_OSX":            {plugin: workflow.SGE, nProcs: ClusterSlots, cluster: true},
}

// Presets returns the names of the wfrun presets, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// ApplyPreset sets the execution plugin of the wfrun preset name. Cluster presets also set the
// default qsub arguments, ending with the configured queue.
func (c *Config) ApplyPreset(name string) error {
	p, ok := presets[name]
	if !ok {
		return errors.Wrapf(ErrUnknownPreset, "%q", name)
	}

	c.Execution.Plugin = string(p.plugin)
	c.Execution.NProcs = p.nProcs

	if p.cluster {
		c.Execution.QsubArgs = ClusterQsubArgs + c.Execution.Queue
	}

	return nil
}
