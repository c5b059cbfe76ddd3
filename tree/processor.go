package tree

import "github.com/signadot/treestate/ir"

// Processor transforms a snapshot. Processors must not modify their input.
type Processor func(*ir.Node) *ir.Node

// Pipeline is a list of processors. Input processing applies them in order,
// output processing in reverse order, so that a pipeline of inverse pairs
// round trips.
type Pipeline []Processor

func (p Pipeline) In(sn *ir.Node) *ir.Node {
	for _, f := range p {
		sn = f(sn)
	}
	return sn
}

func (p Pipeline) Out(sn *ir.Node) *ir.Node {
	for i := len(p) - 1; i >= 0; i-- {
		sn = p[i](sn)
	}
	return sn
}
