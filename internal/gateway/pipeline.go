package gateway

import "net/http"

// Stage is one named step of the gateway pipeline.
type Stage struct {
	Name       string
	Middleware func(http.Handler) http.Handler
}

// Pipeline runs its stages in the order given; the first stage sees the
// request first.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Then wraps terminal with every stage.
func (p *Pipeline) Then(terminal http.Handler) http.Handler {
	h := terminal
	for i := len(p.stages) - 1; i >= 0; i-- {
		h = p.stages[i].Middleware(h)
	}
	return h
}
