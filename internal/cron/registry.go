package cron

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"
)

// Job is one unit of scheduled work. Name labels its logs and metrics.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in the order a cycle runs them.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends job. Nil jobs are ignored.
func (r *Registry) Register(job Job) {
	if job != nil {
		r.jobs = append(r.jobs, job)
	}
}

func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}

// Lookup finds a job by name.
func (r *Registry) Lookup(name string) (Job, bool) {
	i := slices.IndexFunc(r.jobs, func(job Job) bool { return job.Name() == name })
	if i < 0 {
		return nil, false
	}
	return r.jobs[i], true
}

// Names lists job names in run order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}

// Validate collects every blank or repeated name.
func (r *Registry) Validate() error {
	var errs error
	seen := make(map[string]struct{}, len(r.jobs))
	for i, job := range r.jobs {
		name := strings.TrimSpace(job.Name())
		if name == "" {
			errs = multierr.Append(errs, fmt.Errorf("job %d has no name", i))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("job %q registered twice", name))
		}
		seen[name] = struct{}{}
	}
	return errs
}
