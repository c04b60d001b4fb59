package selection

import (
	"io"
	"time"

	"github.com/snapdock/snapdock/internal/driver"
	"github.com/snapdock/snapdock/internal/token"
)

// treeFallback searches the accessibility tree directly when the focus walk
// produced nothing: a bounded depth-first walk from the root, capped per node
// so a pathological sibling list cannot explode it. Non-matching names are
// sampled into res.NearMisses for token tuning. Returns true after
// activating a matched element; w.method and w.finalName carry the details.
func (c *Controller) treeFallback(set token.MatchSet, w *walker, res *Result) bool {
	if set.Empty() {
		return false
	}
	root, err := c.Accessibility.Root()
	if err != nil {
		logger.Debug("tree fallback unavailable", "err", err)
		return false
	}

	stack := []treeFrame{{node: root}}
	visited := 0

	for len(stack) > 0 && visited < c.Params.TreeNodeBudget {
		if time.Now().After(w.deadline) {
			break
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++

		el := f.node.Element()
		if el.Name != "" {
			w.trace.AddUnique(el.Name)
			matched := set.Matches(el.Name)
			w.trace.Record(Observation{
				Phase:       PhaseTree,
				Step:        visited,
				Name:        el.Name,
				Rect:        el.Rect,
				PID:         el.PID,
				ControlKind: el.ControlKind,
				Matched:     matched,
			})
			if matched {
				w.activate(el.Name, el.Rect)
				if w.method == MethodClick {
					w.method = MethodTreeClick
				}
				closeNode(f.node)
				closeFrames(stack)
				logger.Debug("tree fallback matched", "name", el.Name, "visited", visited)
				return true
			}
			if len(res.NearMisses) < c.Params.TreeSampleCap {
				res.NearMisses = append(res.NearMisses, el.Name)
			}
		}

		children := make([]driver.Node, 0, 8)
		if child, ok := f.node.FirstChild(); ok {
			children = append(children, child)
			for len(children) < c.Params.TreeFanout {
				sib, ok := children[len(children)-1].NextSibling()
				if !ok {
					break
				}
				children = append(children, sib)
			}
		}
		// Reverse so the stack pops children left to right.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, treeFrame{node: children[i], depth: f.depth + 1})
		}
		closeNode(f.node)
	}

	closeFrames(stack)
	logger.Debug("tree fallback found no match", "visited", visited)
	return false
}

type treeFrame struct {
	node  driver.Node
	depth int
}

// closeNode releases a node's platform resources when it holds any. The
// scripted driver's nodes do not; the COM-backed ones do.
func closeNode(n driver.Node) {
	if c, ok := n.(io.Closer); ok {
		c.Close() //nolint:errcheck
	}
}

func closeFrames(frames []treeFrame) {
	for _, f := range frames {
		closeNode(f.node)
	}
}
