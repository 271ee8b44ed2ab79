package model

// TopWire is the wire encoding of the unbounded delta.
const TopWire = "999"

// Delta is an analysis value for a (node, parameter) pair. It is either a
// printable integer passed through verbatim or Top.
type Delta struct {
	raw string
	top bool
}

// ParseDelta interprets a relation field. Only the literal 999 means Top.
func ParseDelta(field string) Delta {
	if field == TopWire {
		return Delta{top: true}
	}
	return Delta{raw: field}
}

// Top returns the unbounded delta.
func Top() Delta { return Delta{top: true} }

// IsTop reports whether d is the unbounded sentinel.
func (d Delta) IsTop() bool { return d.top }

func (d Delta) String() string {
	if d.top {
		return IconTop
	}
	return d.raw
}

// AnalysisRecord is one row of a delta relation.
type AnalysisRecord struct {
	SubjectNodeID string
	ParameterID   string
	Delta         Delta
}

// GraphNode is a node declaration line of the graph artifact:
// <id> [ label="<label>" shape="<shape>" ]
type GraphNode struct {
	ID    int
	Label string
	Shape string
}
