package vocab

// Computation status names on the API side, keyed to the action status
// vocabulary names used in the graph.
var statusToGraph = map[string]string{
	"queued":    "potential",
	"running":   "active",
	"completed": "completed",
	"failed":    "failed",
}

var statusFromGraph = invert(statusToGraph)

// StatusToGraph translates an API status name into the graph's action
// status name.
func StatusToGraph(status string) (string, bool) {
	name, ok := statusToGraph[status]
	return name, ok
}

// StatusFromGraph translates a graph action status name into the API status
// name.
func StatusFromGraph(name string) (string, bool) {
	status, ok := statusFromGraph[name]
	return status, ok
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}

	return out
}
