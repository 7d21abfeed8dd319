package graph

// Options controls how an edge list becomes a graph. It can be read from a run-config file.
type Options struct {
	Name          string `yaml:"name"`           // Path of the edge list.
	WeightPos     int    `yaml:"weight_pos"`     // Logical position of the weight after [src, dst]; 0 means no weight column.
	DefaultWeight uint32 `yaml:"default_weight"` // Weight of edges without a weight column.
	Undirected    bool   `yaml:"undirected"`     // Add the reverse of every edge.
	Transpose     bool   `yaml:"transpose"`      // Flip src and dst of every edge.
}

// DefaultOptions uses unit weights.
func DefaultOptions() Options {
	return Options{DefaultWeight: 1}
}
