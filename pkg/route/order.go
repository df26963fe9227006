package route

import "sort"

// dependencies returns the ids of paths spliced into spec, using the same
// node-before-path precedence as step resolution.
func (r *Router) dependencies(spec PathSpec, jobs map[string]*job) []string {
	var deps []string
	for _, names := range spec.Steps {
		if len(names) != 1 {
			continue
		}
		name := names[0]
		if len(r.Graph.Resolve(name)) > 0 {
			continue
		}
		if _, ok := jobs[name]; ok {
			deps = append(deps, name)
		}
	}
	return deps
}

// levels groups path ids so that every path comes after the paths it
// splices in. A reference cycle is an error naming a path on the cycle.
func (r *Router) levels(ids []string, jobs map[string]*job) ([][]string, error) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(ids))
	depth := make(map[string]int, len(ids))

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return cycleError(id)
		case black:
			return nil
		}
		color[id] = gray
		d := 0
		for _, dep := range r.dependencies(jobs[id].spec, jobs) {
			if err := visit(dep); err != nil {
				return err
			}
			d = max(d, depth[dep]+1)
		}
		color[id] = black
		depth[id] = d
		return nil
	}
	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	var out [][]string
	for _, id := range ids {
		d := depth[id]
		for len(out) <= d {
			out = append(out, nil)
		}
		out[d] = append(out[d], id)
	}
	for _, level := range out {
		sort.Strings(level)
	}
	return out, nil
}
