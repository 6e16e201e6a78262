package board

import (
	"time"

	"workboard/api/internal/match"
	"workboard/api/internal/store"
)

// Context is the immutable per-call input to a strategy: the projected
// pipeline, the full pipeline/stage sets, the acting user and privilege, and
// the technician display-name lookup built once per call.
type Context struct {
	Pipeline     store.Pipeline
	Kind         match.PipelineKind
	Pipelines    []store.Pipeline
	Stages       map[string][]store.Stage
	ActingUserID string
	Privileged   bool
	Technicians  map[string]string
	Now          time.Time
}

func buildContext(pipeline store.Pipeline, snap *Snapshot, opts Options) *Context {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Context{
		Pipeline:     pipeline,
		Kind:         match.ClassifyPipeline(pipeline.Name),
		Pipelines:    snap.Pipelines,
		Stages:       snap.StagesByPipeline,
		ActingUserID: opts.ActingUserID,
		Privileged:   opts.Privileged,
		Technicians:  snap.Technicians,
		Now:          now,
	}
}

// StageByKind returns the first stage of the given role in a pipeline,
// following the pipeline's configured sort order.
func (c *Context) StageByKind(pipelineID string, kind match.StageKind) (store.Stage, bool) {
	for _, stage := range c.Stages[pipelineID] {
		if match.ClassifyStage(stage.Name) == kind {
			return stage, true
		}
	}
	return store.Stage{}, false
}

// DefaultStage is the deterministic fallback: the pipeline's New stage if one
// exists, otherwise its first stage.
func (c *Context) DefaultStage(pipelineID string) (store.Stage, bool) {
	if stage, ok := c.StageByKind(pipelineID, match.StageNew); ok {
		return stage, true
	}
	stages := c.Stages[pipelineID]
	if len(stages) == 0 {
		return store.Stage{}, false
	}
	return stages[0], true
}

// StageByID resolves a stage anywhere in the snapshot.
func (c *Context) StageByID(stageID string) (store.Stage, bool) {
	for _, stages := range c.Stages {
		for _, stage := range stages {
			if stage.ID == stageID {
				return stage, true
			}
		}
	}
	return store.Stage{}, false
}

// StageOrder maps stage id to its sort position within the projected pipeline.
func (c *Context) StageOrder() map[string]int {
	order := make(map[string]int)
	for i, stage := range c.Stages[c.Pipeline.ID] {
		order[stage.ID] = i
	}
	return order
}

// DepartmentPipelines returns the pipelines classified as department queues.
func (c *Context) DepartmentPipelines() []store.Pipeline {
	var out []store.Pipeline
	for _, p := range c.Pipelines {
		if match.ClassifyPipeline(p.Name) == match.PipelineDepartment {
			out = append(out, p)
		}
	}
	return out
}
