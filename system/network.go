package system

import (
	"fmt"
	"sort"

	"github.com/flowsimlabs/flowsim/thermo"
)

// graph captures stream connectivity over a fixed unit set.
type graph struct {
	units  map[Unit]bool
	source map[*thermo.Stream]Unit
	sink   map[*thermo.Stream]Unit
}

func buildGraph(units []Unit) *graph {
	g := &graph{
		units:  make(map[Unit]bool, len(units)),
		source: make(map[*thermo.Stream]Unit),
		sink:   make(map[*thermo.Stream]Unit),
	}
	for _, unit := range units {
		g.units[unit] = true
		for _, stream := range unit.Outs() {
			if stream != nil {
				g.source[stream] = unit
			}
		}
		for _, stream := range unit.Ins() {
			if stream != nil {
				g.sink[stream] = unit
			}
		}
	}
	return g
}

// feeds returns streams consumed but never produced within the unit set.
func (g *graph) feeds() []*thermo.Stream {
	var out []*thermo.Stream
	for stream := range g.sink {
		if g.source[stream] == nil {
			out = append(out, stream)
		}
	}
	// largest feed first, name breaks ties for determinism
	sort.Slice(out, func(i, j int) bool {
		fi, fj := out[i].Fmass(), out[j].Fmass()
		if fi != fj {
			return fi > fj
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// products returns streams produced but never consumed within the unit set.
func (g *graph) products() []*thermo.Stream {
	var out []*thermo.Stream
	for stream := range g.source {
		if g.sink[stream] == nil {
			out = append(out, stream)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// downstreamUnits returns every unit reachable from the given unit without
// crossing an end stream. Ends cut recycle loops so the reachability
// relation stays acyclic for sorting.
func (g *graph) downstreamUnits(unit Unit, ends map[*thermo.Stream]bool) map[Unit]bool {
	seen := map[Unit]bool{unit: true}
	frontier := []Unit{unit}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for _, stream := range next.Outs() {
			if ends[stream] {
				continue
			}
			sink := g.sink[stream]
			if sink == nil || seen[sink] || !g.units[sink] {
				continue
			}
			seen[sink] = true
			frontier = append(frontier, sink)
		}
	}
	return seen
}

// Network is a nested execution path of units: linear sections run once,
// sub-networks with recycles iterate to convergence.
type Network struct {
	Path    []*PathNode
	Recycle []*thermo.Stream
	units   map[Unit]bool
}

// PathNode is one element of a network path: either a unit or a nested
// network, never both.
type PathNode struct {
	Unit Unit
	Sub  *Network
}

func newNetwork(path []Unit, recycle *thermo.Stream) *Network {
	n := &Network{units: make(map[Unit]bool, len(path))}
	for _, unit := range path {
		n.Path = append(n.Path, &PathNode{Unit: unit})
		n.units[unit] = true
	}
	if recycle != nil {
		n.Recycle = []*thermo.Stream{recycle}
	}
	return n
}

// Units returns the set of units contained in the network and its
// sub-networks.
func (n *Network) Units() map[Unit]bool {
	return n.units
}

func (n *Network) isDisjoint(other *Network) bool {
	for unit := range other.units {
		if n.units[unit] {
			return false
		}
	}
	return true
}

func (n *Network) addUnits(other *Network) {
	for unit := range other.units {
		n.units[unit] = true
	}
}

// recycleSink returns the unit the first recycle stream feeds into.
func (n *Network) recycleSink(g *graph) Unit {
	if len(n.Recycle) == 0 {
		return nil
	}
	return g.sink[n.Recycle[0]]
}

func (n *Network) addRecycle(streams []*thermo.Stream) {
	for _, stream := range streams {
		known := false
		for _, existing := range n.Recycle {
			if existing == stream {
				known = true
				break
			}
		}
		if !known {
			n.Recycle = append(n.Recycle, stream)
		}
	}
}

// allRecycles collects recycle streams of the network and its
// sub-networks.
func (n *Network) allRecycles(out []*thermo.Stream) []*thermo.Stream {
	out = append(out, n.Recycle...)
	for _, node := range n.Path {
		if node.Sub != nil {
			out = node.Sub.allRecycles(out)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Path discovery
// ---------------------------------------------------------------------------

type recyclePath struct {
	path    []Unit
	recycle *thermo.Stream
}

// fillPath walks downstream from feed collecting linear paths and, when a
// unit repeats, cyclic paths closed by the repeated feed.
func fillPath(feed *thermo.Stream, path []Unit, withRecycle *[]recyclePath, withoutRecycle *[][]Unit, ends map[*thermo.Stream]bool, g *graph) {
	unit := g.sink[feed]
	var hasRecycle *bool
	if ends[feed] {
		value := false
		if unit != nil && containsUnit(path, unit) {
			for _, rp := range *withRecycle {
				value = g.sink[rp.recycle] == unit
				if value {
					break
				}
			}
		}
		hasRecycle = &value
	}
	if unit == nil || !g.units[unit] || (hasRecycle != nil && !*hasRecycle) {
		*withoutRecycle = append(*withoutRecycle, path)
		return
	}
	if (hasRecycle != nil && *hasRecycle) || containsUnit(path, unit) {
		*withRecycle = append(*withRecycle, recyclePath{path: path, recycle: feed})
		ends[feed] = true
		return
	}
	path = append(path, unit)
	outs := unit.Outs()
	if len(outs) == 0 {
		*withoutRecycle = append(*withoutRecycle, path)
		return
	}
	for _, outlet := range outs[1:] {
		branch := append([]Unit(nil), path...)
		fillPath(outlet, branch, withRecycle, withoutRecycle, ends, g)
	}
	fillPath(outs[0], path, withRecycle, withoutRecycle, ends, g)
}

func containsUnit(path []Unit, unit Unit) bool {
	for _, u := range path {
		if u == unit {
			return true
		}
	}
	return false
}

// cyclicPath trims a path with recycle so it starts at the recycle sink.
func cyclicPath(rp recyclePath, g *graph) recyclePath {
	sink := g.sink[rp.recycle]
	for i, unit := range rp.path {
		if unit == sink {
			return recyclePath{path: rp.path[i:], recycle: rp.recycle}
		}
	}
	return rp
}

// simplifyLinearPaths removes units that later (longer) paths cover so that
// each unit appears once across the linear sections.
func simplifyLinearPaths(paths [][]Unit) [][]Unit {
	if len(paths) == 0 {
		return paths
	}
	sort.SliceStable(paths, func(i, j int) bool { return len(paths[i]) < len(paths[j]) })
	sets := make([]map[Unit]bool, len(paths))
	all := make(map[Unit]bool)
	for i, path := range paths {
		sets[i] = make(map[Unit]bool, len(path))
		for _, unit := range path {
			sets[i][unit] = true
			all[unit] = true
		}
	}
	var simplified [][]Unit
	for i, path := range paths {
		var kept []Unit
		for _, unit := range path {
			covered := false
			for _, later := range sets[i+1:] {
				if later[unit] {
					covered = true
					break
				}
			}
			if !covered {
				kept = append(kept, unit)
			}
		}
		if len(kept) > 0 {
			simplified = append(simplified, kept)
		}
	}
	// longest-coverage first
	for i, j := 0, len(simplified)-1; i < j; i, j = i+1, j-1 {
		simplified[i], simplified[j] = simplified[j], simplified[i]
	}
	return simplified
}

// NetworkFromFeedstock builds the execution network downstream of the
// feedstock, then merges the networks of the remaining feeds and sorts the
// result so no element precedes its upstream source.
func NetworkFromFeedstock(feedstock *thermo.Stream, feeds []*thermo.Stream, ends map[*thermo.Stream]bool, g *graph) *Network {
	if ends == nil {
		ends = make(map[*thermo.Stream]bool)
	}
	recycleEnds := make(map[*thermo.Stream]bool, len(ends))
	for k, v := range ends {
		recycleEnds[k] = v
	}

	var withRecycle []recyclePath
	var withoutRecycle [][]Unit
	fillPath(feedstock, nil, &withRecycle, &withoutRecycle, ends, g)

	cyclic := make([]recyclePath, 0, len(withRecycle))
	for _, rp := range withRecycle {
		cyclic = append(cyclic, cyclicPath(rp, g))
	}
	sort.SliceStable(cyclic, func(i, j int) bool { return len(cyclic[i].path) > len(cyclic[j].path) })

	linear := simplifyLinearPaths(withoutRecycle)
	var network *Network
	if len(linear) > 0 {
		network = newNetwork(linear[0], nil)
		for _, path := range linear[1:] {
			network.joinLinearNetwork(newNetwork(path, nil))
		}
	} else {
		network = newNetwork(nil, nil)
	}
	for _, rp := range cyclic {
		network.joinRecycleNetwork(newNetwork(rp.path, rp.recycle), g)
	}

	for stream := range network.streams(g) {
		ends[stream] = true
	}
	for _, feed := range feeds {
		if ends[feed] || g.sink[feed] == nil {
			continue
		}
		downstream := NetworkFromFeedstock(feed, nil, ends, g)
		connecting := make(map[Unit]bool)
		for stream := range downstream.streams(g) {
			if ends[stream] && g.source[stream] != nil && g.sink[stream] != nil && g.units[g.sink[stream]] {
				connecting[g.sink[stream]] = true
			}
			ends[stream] = true
		}
		switch len(connecting) {
		case 0:
			network.appendNetwork(downstream)
		default:
			network.joinNetworkAtUnit(downstream, network.firstUnit(connecting))
		}
	}

	for _, recycle := range network.allRecycles(nil) {
		recycleEnds[recycle] = true
	}
	for _, product := range g.products() {
		recycleEnds[product] = true
	}
	network.sort(recycleEnds, g)
	network.reduceRecycles(g)
	return network
}

// streams returns every stream attached to the network's units.
func (n *Network) streams(g *graph) map[*thermo.Stream]bool {
	out := make(map[*thermo.Stream]bool)
	for unit := range n.units {
		for _, stream := range unit.Ins() {
			if stream != nil {
				out[stream] = true
			}
		}
		for _, stream := range unit.Outs() {
			if stream != nil {
				out[stream] = true
			}
		}
	}
	return out
}

// firstUnit returns the first of the given units along the path.
func (n *Network) firstUnit(units map[Unit]bool) Unit {
	for _, node := range n.Path {
		if node.Sub != nil {
			if !node.Sub.isDisjointSet(units) {
				return node.Sub.firstUnit(units)
			}
		} else if units[node.Unit] {
			return node.Unit
		}
	}
	return nil
}

func (n *Network) isDisjointSet(units map[Unit]bool) bool {
	for unit := range units {
		if n.units[unit] {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Join operations
// ---------------------------------------------------------------------------

func (n *Network) removeOverlap(other *Network) {
	var kept []*PathNode
	for _, node := range n.Path {
		if node.Sub == nil && other.units[node.Unit] {
			continue
		}
		kept = append(kept, node)
	}
	n.Path = kept
}

func (n *Network) appendLinearNetwork(other *Network) {
	n.Path = append(n.Path, other.Path...)
	n.addUnits(other)
}

func (n *Network) appendRecycleNetwork(other *Network) {
	n.Path = append(n.Path, &PathNode{Sub: other})
	n.addUnits(other)
}

func (n *Network) appendNetwork(other *Network) {
	if len(n.Recycle) > 0 {
		inner := &Network{Path: n.Path, Recycle: n.Recycle, units: n.units}
		n.Recycle = nil
		n.units = make(map[Unit]bool)
		n.addUnits(inner)
		if len(other.Recycle) > 0 {
			n.Path = []*PathNode{{Sub: inner}, {Sub: other}}
		} else {
			n.Path = append([]*PathNode{{Sub: inner}}, other.Path...)
		}
		n.addUnits(other)
		return
	}
	if len(other.Recycle) > 0 {
		n.appendRecycleNetwork(other)
		return
	}
	n.appendLinearNetwork(other)
}

func (n *Network) insertLinearNetwork(index int, other *Network) {
	path := n.Path
	n.Path = append(append(append([]*PathNode(nil), path[:index]...), other.Path...), path[index:]...)
	n.addUnits(other)
}

func (n *Network) insertRecycleNetwork(index int, other *Network) {
	n.Path = append(n.Path[:index], append([]*PathNode{{Sub: other}}, n.Path[index:]...)...)
	n.addUnits(other)
	if len(n.Path) == 1 && n.Path[0].Sub != nil {
		inner := n.Path[0].Sub
		n.Path = inner.Path
		n.Recycle = inner.Recycle
	}
}

func (n *Network) joinLinearNetwork(other *Network) {
	n.removeOverlap(other)
	for index, node := range n.Path {
		if node.Sub == nil && other.units[node.Unit] {
			n.insertLinearNetwork(index, other)
			return
		}
	}
	n.appendLinearNetwork(other)
}

func (n *Network) joinRecycleNetwork(other *Network, g *graph) {
	if sink := n.recycleSink(g); sink != nil && sink == other.recycleSink(g) {
		// feed-forward: the loops share a sink, merge recycles
		n.addRecycle(other.Recycle)
		other.Recycle = nil
		n.addLinearNetwork(other)
		return
	}
	n.removeOverlap(other)
	for _, node := range n.Path {
		if node.Sub != nil && !node.Sub.isDisjoint(other) {
			node.Sub.joinRecycleNetwork(other, g)
			n.addUnits(other)
			return
		}
	}
	for index, node := range n.Path {
		if node.Sub == nil && other.units[node.Unit] {
			n.insertRecycleNetwork(index, other)
			return
		}
	}
	// no overlap: run the loop after the current path
	n.appendRecycleNetwork(other)
}

func (n *Network) addLinearNetwork(other *Network) {
	n.removeOverlap(other)
	for _, node := range n.Path {
		if node.Sub != nil && !node.Sub.isDisjoint(other) {
			node.Sub.addLinearNetwork(other)
			n.addUnits(other)
			return
		}
	}
	for index, node := range n.Path {
		if node.Sub == nil && other.units[node.Unit] {
			n.insertLinearNetwork(index, other)
			return
		}
	}
	n.appendLinearNetwork(other)
}

func (n *Network) joinNetworkAtUnit(other *Network, unit Unit) {
	n.removeOverlap(other)
	for index, node := range n.Path {
		if node.Sub != nil && node.Sub.units[unit] {
			if len(other.Recycle) > 0 {
				node.Sub.joinNetworkAtUnit(other, unit)
				n.addUnits(other)
			} else {
				n.insertLinearNetwork(index, other)
			}
			return
		}
		if node.Sub == nil && node.Unit == unit {
			if len(other.Recycle) > 0 {
				n.insertRecycleNetwork(index, other)
			} else {
				n.insertLinearNetwork(index, other)
			}
			return
		}
	}
	n.appendNetwork(other)
}

// reduceRecycles collapses multi-stream recycles that all feed the same
// single-outlet unit down to that unit's outlet.
func (n *Network) reduceRecycles(g *graph) {
	if len(n.Recycle) > 1 {
		sinks := make(map[Unit]bool)
		for _, recycle := range n.Recycle {
			sinks[g.sink[recycle]] = true
		}
		if len(sinks) == 1 {
			for sink := range sinks {
				if sink != nil && len(sink.Outs()) == 1 {
					n.Recycle = []*thermo.Stream{sink.Outs()[0]}
				}
			}
		}
	}
	for _, node := range n.Path {
		if node.Sub != nil {
			node.Sub.reduceRecycles(g)
		}
	}
}

// ---------------------------------------------------------------------------
// Topological sort
// ---------------------------------------------------------------------------

type pathSource struct {
	node       *PathNode
	downstream map[Unit]bool
}

func newPathSource(node *PathNode, ends map[*thermo.Stream]bool, g *graph) *pathSource {
	ps := &pathSource{node: node, downstream: make(map[Unit]bool)}
	if node.Sub != nil {
		for unit := range node.Sub.units {
			for u := range g.downstreamUnits(unit, ends) {
				ps.downstream[u] = true
			}
		}
	} else {
		ps.downstream = g.downstreamUnits(node.Unit, ends)
	}
	return ps
}

func (ps *pathSource) downstreamFrom(other *pathSource) bool {
	if ps == other {
		return false
	}
	if ps.node.Sub != nil {
		for unit := range ps.node.Sub.units {
			if other.downstream[unit] {
				return true
			}
		}
		return false
	}
	return other.downstream[ps.node.Unit]
}

// sort reorders the path so that no element precedes a source it depends
// on. The pass is bounded; pathological graphs keep their current order.
func (n *Network) sort(ends map[*thermo.Stream]bool, g *graph) {
	for _, node := range n.Path {
		if node.Sub != nil {
			node.Sub.sort(ends, g)
		}
	}
	sources := make([]*pathSource, 0, len(n.Path))
	for _, node := range n.Path {
		sources = append(sources, newPathSource(node, ends, g))
	}
	size := len(sources)
	if size == 0 {
		return
	}
	for pass := 0; pass < size*size; pass++ {
		stable := true
		for i := 0; i < size-1; i++ {
			upstream := sources[i]
			for j := i + 1; j < size; j++ {
				downstream := sources[j]
				if upstream.downstreamFrom(downstream) {
					copy(sources[i+1:j+1], sources[i:j])
					sources[i] = downstream
					upstream = downstream
					stable = false
				}
			}
		}
		if stable {
			break
		}
	}
	for i, source := range sources {
		n.Path[i] = source.node
	}
}

// String renders the nested path for debugging.
func (n *Network) String() string {
	return n.info("")
}

func (n *Network) info(indent string) string {
	out := indent + "Network(["
	inner := indent + "    "
	for i, node := range n.Path {
		if i > 0 {
			out += ","
		}
		out += "\n"
		if node.Sub != nil {
			out += node.Sub.info(inner)
		} else {
			out += inner + node.Unit.ID()
		}
	}
	out += "]"
	if len(n.Recycle) > 0 {
		out += fmt.Sprintf(", recycle=%s", n.Recycle[0].Name())
	}
	return out + ")"
}
