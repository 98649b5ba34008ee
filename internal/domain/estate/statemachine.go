package estate

import "slices"

// transitionKey is one (state, action) cell of a transition table.
type transitionKey[S ~string] struct {
	from   S
	action string
}

// transitionTable maps (state, action) to the next state. A missing cell is a
// rejected transition.
type transitionTable[S ~string] map[transitionKey[S]]S

func (t transitionTable[S]) next(from S, action string) (S, bool) {
	to, ok := t[transitionKey[S]{from: from, action: action}]
	return to, ok
}

// targets lists every state reachable in one step from from, sorted.
func (t transitionTable[S]) targets(from S) []S {
	var out []S
	for k, v := range t {
		if k.from == from {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// actions lists every action accepted from from, sorted.
func (t transitionTable[S]) actions(from S) []string {
	var out []string
	for k := range t {
		if k.from == from {
			out = append(out, k.action)
		}
	}
	slices.Sort(out)
	return out
}
