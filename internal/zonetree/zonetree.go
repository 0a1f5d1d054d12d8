// Package zonetree builds a compressed tree from a country's zone
// histories recording how those zones' behaviors have agreed or
// diverged over [S, E). A tree is built once per country, used to
// validate priority clashes and compute per-zone "no-longer-used-after"
// instants, then discarded.
//
// The tree is implemented as an arena of nodes indexed by integer
// handles: the Tree owns every Node in a flat slice and all
// parent/child references are indices into it, so there is no pointer
// ownership cycle between parent and child during construction.
package zonetree

import (
	"fmt"
	"sort"

	"tzoffline/internal/instant"
	"tzoffline/internal/zonehistory"
)

const rootHandle = 0

// Node is one vertex of the tree. The root (handle 0) is synthetic: it
// is not a "real" node, has PeriodOffset=0, PeriodCount=0, and its
// children partition the full input zone set.
type Node struct {
	ID           string
	Zones        []zonehistory.History
	PeriodOffset int
	PeriodCount  int
	// start is the deep (toward-S) boundary of this node's collapsed
	// span, i.e. the Start field of the earliest period folded into it.
	start    instant.Instant
	Primary  *zonehistory.History
	Clash    bool
	Children []int
	parent   int
}

// IsRoot reports whether n is the synthetic root.
func (n Node) IsRoot() bool { return n.parent < 0 }

// Tree is the compressed, read-only-after-build structure for one
// country's zone set.
type Tree struct {
	country string
	s, e    instant.Instant
	nodes   []Node
}

// Clash describes one priority-tie node found by Validate.
type Clash struct {
	NodeID   string
	ZoneIds  []string
	Priority int
}

// Usage is the result recorded per zone id by ComputeUsage.
type Usage struct {
	NotUsedAfter instant.Instant
	StillInUse   bool // true means ⊥: still in use at the tree's horizon
}

// ErrPartialPartition signals a data-integrity violation: a node's
// members failed to either stay together (leaf) or fully partition into
// children, which should be unreachable given the grouping algorithm
// below and indicates corrupt input histories.
var ErrPartialPartition = fmt.Errorf("zonetree: member zones did not fully partition at a node")

// ErrPriorityClash is returned by ComputeUsage when Validate is non-empty.
var ErrPriorityClash = fmt.Errorf("zonetree: unresolved priority clash")

// Build grows, compresses and finalizes a tree for one country.
func Build(country string, histories []zonehistory.History, s, e instant.Instant) (*Tree, error) {
	t := &Tree{
		country: country,
		s:       s,
		e:       e,
		nodes: []Node{{
			ID:           country + "/root",
			Zones:        histories,
			PeriodOffset: 0,
			PeriodCount:  0,
			parent:       -1,
		}},
	}

	if err := t.grow(rootHandle); err != nil {
		return nil, err
	}
	for _, c := range t.nodes[rootHandle].Children {
		t.compress(c)
	}
	t.finalize(rootHandle)

	return t, nil
}

// grow recursively partitions nodeIdx's member zones into children based
// on agreement at the next period slot, depth-first.
func (t *Tree) grow(nodeIdx int) error {
	node := t.nodes[nodeIdx]
	k := node.PeriodOffset

	type group struct {
		key    zonehistory.Key
		zones  []zonehistory.History
		starts []instant.Instant
	}
	var order []zonehistory.Key
	groups := map[zonehistory.Key]*group{}
	dropped := 0

	for _, h := range node.Zones {
		key, ok := h.KeyAt(k)
		if !ok {
			dropped++
			continue // zone ran out of periods here; dropped, leaf for that zone
		}
		g, seen := groups[key]
		if !seen {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		p, _ := h.PeriodAt(k)
		g.zones = append(g.zones, h)
		g.starts = append(g.starts, p.Start)
	}

	if len(groups) == 0 {
		return nil // leaf: every member ran out of periods here
	}
	if dropped > 0 {
		return ErrPartialPartition
	}

	for _, key := range order {
		g := groups[key]
		childIdx := len(t.nodes)
		t.nodes = append(t.nodes, Node{
			ID:           fmt.Sprintf("%s/n%d", t.country, childIdx),
			Zones:        g.zones,
			PeriodOffset: k + 1,
			PeriodCount:  1,
			start:        g.starts[0],
			parent:       nodeIdx,
		})
		t.nodes[nodeIdx].Children = append(t.nodes[nodeIdx].Children, childIdx)
		if err := t.grow(childIdx); err != nil {
			return err
		}
	}

	return nil
}

// compress collapses chains of single-child nodes in place, bottom-up.
func (t *Tree) compress(nodeIdx int) {
	for _, c := range t.nodes[nodeIdx].Children {
		t.compress(c)
	}
	for len(t.nodes[nodeIdx].Children) == 1 {
		childIdx := t.nodes[nodeIdx].Children[0]
		child := t.nodes[childIdx]
		n := t.nodes[nodeIdx]
		n.PeriodCount += child.PeriodCount
		n.start = child.start
		n.Children = child.Children
		t.nodes[nodeIdx] = n
	}
}

// finalize computes Primary/Clash for every non-root node.
func (t *Tree) finalize(nodeIdx int) {
	if !t.nodes[nodeIdx].IsRoot() {
		t.setPrimary(nodeIdx)
	}
	for _, c := range t.nodes[nodeIdx].Children {
		t.finalize(c)
	}
}

func (t *Tree) setPrimary(nodeIdx int) {
	n := &t.nodes[nodeIdx]
	best := -1
	clash := false
	for i := range n.Zones {
		switch {
		case best < 0 || n.Zones[i].Priority > n.Zones[best].Priority:
			best = i
			clash = false
		case n.Zones[i].Priority == n.Zones[best].Priority:
			clash = true
		}
	}
	if best >= 0 {
		n.Primary = &n.Zones[best]
	}
	n.Clash = clash
}

// Validate returns one Clash per node where two member zones tied on
// the highest priority. A non-empty result is not itself a build-time
// error; it is reportable diagnostics and blocks ComputeUsage.
func (t *Tree) Validate() []Clash {
	var out []Clash
	for i, n := range t.nodes {
		if i == rootHandle || !n.Clash {
			continue
		}
		ids := make([]string, 0, len(n.Zones))
		for _, z := range n.Zones {
			ids = append(ids, z.ZoneId)
		}
		sort.Strings(ids)
		out = append(out, Clash{NodeID: n.ID, ZoneIds: ids, Priority: n.Primary.Priority})
	}
	return out
}

// PrimaryForZone returns the primary zone id of the shallowest node in
// which zoneId is still a member: the zone currently used in its place,
// not the deepest (oldest-diverged) node, where a deprecated zone is
// usually its own trivial primary. Returns "" if zoneId never appears
// below the root.
func (t *Tree) PrimaryForZone(zoneId string) string {
	best := ""
	var walk func(idx int)
	walk = func(idx int) {
		if best != "" {
			return
		}
		n := t.nodes[idx]
		member := false
		for _, z := range n.Zones {
			if z.ZoneId == zoneId {
				member = true
				break
			}
		}
		if member && n.Primary != nil {
			best = n.Primary.ZoneId
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, c := range t.nodes[rootHandle].Children {
		walk(c)
	}
	return best
}

// endInstant returns the node's shallow (toward-E) boundary: its
// parent's deep boundary, or the tree's E if the parent is the root.
func (t *Tree) endInstant(nodeIdx int) instant.Instant {
	parent := t.nodes[nodeIdx].parent
	if t.nodes[parent].IsRoot() {
		return t.e
	}
	return t.nodes[parent].start
}

// ComputeUsage walks every non-root node and assigns each zone id the
// earliest-assigned, latest-living usage entry: the primary zone of
// each root child has the tree's E as its endInstant, so it resolves to
// StillInUse whenever E is after endCutoff, and its entry is never
// overwritten by a deeper node assigning the same zone id again.
func (t *Tree) ComputeUsage(endCutoff instant.Instant) (map[string]Usage, error) {
	if len(t.Validate()) > 0 {
		return nil, ErrPriorityClash
	}

	out := map[string]Usage{}
	var walk func(idx int)
	walk = func(idx int) {
		n := t.nodes[idx]
		assign := func(zoneId string) {
			if _, ok := out[zoneId]; ok {
				return
			}
			end := t.endInstant(idx)
			if end.After(endCutoff) {
				out[zoneId] = Usage{StillInUse: true}
			} else {
				out[zoneId] = Usage{NotUsedAfter: end}
			}
		}

		if len(n.Children) == 0 {
			for _, z := range n.Zones {
				assign(z.ZoneId)
			}
		} else {
			assign(n.Primary.ZoneId)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, c := range t.nodes[rootHandle].Children {
		walk(c)
	}
	return out, nil
}
