package ir

import "sort"

// DominatorTree is the precomputed dominance analysis (spec §3). It is
// built with the standard iterative reverse-postorder fixpoint
// (Cooper, Harvey & Kennedy, "A Simple, Fast Dominance Algorithm") —
// no graph library appears anywhere in the example pack for this (see
// DESIGN.md); the retrieved wazero SSA builder computes its own
// dominators in plain Go the same way, via passCalculateImmediateDominators.
type DominatorTree struct {
	fn       *Function
	idom     map[*BasicBlock]*BasicBlock
	rpo      []*BasicBlock
	rpoIndex map[*BasicBlock]int
	children map[*BasicBlock][]*BasicBlock
}

// BuildDominatorTree computes the dominator tree for f. f.Blocks must
// be non-empty and reachable from f.Entry(); unreachable blocks are
// simply absent from the tree (the pass driver's mop-up pass, §2,
// handles them separately).
func BuildDominatorTree(f *Function) (*DominatorTree, error) {
	if len(f.Blocks) == 0 {
		return &DominatorTree{fn: f, idom: map[*BasicBlock]*BasicBlock{}, children: map[*BasicBlock][]*BasicBlock{}}, nil
	}
	entry := f.Entry()
	rpo := reversePostorder(entry)
	rpoIndex := make(map[*BasicBlock]int, len(rpo))
	for i, b := range rpo {
		rpoIndex[b] = i
	}

	idom := make(map[*BasicBlock]*BasicBlock, len(rpo))
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom *BasicBlock
			for _, pred := range b.Predecessors {
				if _, ok := idom[pred]; !ok {
					continue
				}
				if newIdom == nil {
					newIdom = pred
					continue
				}
				newIdom = intersect(newIdom, pred, idom, rpoIndex)
			}
			if newIdom == nil {
				continue
			}
			if idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	delete(idom, entry) // entry has no strict dominator

	children := make(map[*BasicBlock][]*BasicBlock)
	for b, d := range idom {
		children[d] = append(children[d], b)
	}
	for _, kids := range children {
		sort.Slice(kids, func(i, j int) bool { return rpoIndex[kids[i]] < rpoIndex[kids[j]] })
	}

	return &DominatorTree{fn: f, idom: idom, rpo: rpo, rpoIndex: rpoIndex, children: children}, nil
}

func intersect(a, b *BasicBlock, idom map[*BasicBlock]*BasicBlock, rpoIndex map[*BasicBlock]int) *BasicBlock {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(entry *BasicBlock) []*BasicBlock {
	visited := map[*BasicBlock]bool{}
	var post []*BasicBlock
	var visit func(*BasicBlock)
	visit = func(b *BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Successors {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)
	rpo := make([]*BasicBlock, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

// Idom returns b's immediate dominator, or nil for the entry block or
// an unreachable block.
func (d *DominatorTree) Idom(b *BasicBlock) *BasicBlock { return d.idom[b] }

// Dominates reports whether a dominates b (reflexively).
func (d *DominatorTree) Dominates(a, b *BasicBlock) bool {
	for cur := b; cur != nil; cur = d.idom[cur] {
		if cur == a {
			return true
		}
		if d.idom[cur] == cur {
			break
		}
	}
	return a == b
}

// Children returns the dominator-tree children of b.
func (d *DominatorTree) Children(b *BasicBlock) []*BasicBlock { return d.children[b] }

// DFS walks the dominator tree rooted at the function entry in
// pre-order, matching `df_iterator` over `DominatorTree` in the
// original pass (ilr.cpp's SwiftPass::runOnFunction): this is the
// traversal order ILR applies its per-instruction rewrite in, and the
// order the Pass Driver (§2) uses before mopping up unvisited blocks.
func (d *DominatorTree) DFS() []*BasicBlock {
	if d.fn == nil || d.fn.Entry() == nil {
		return nil
	}
	var order []*BasicBlock
	var visit func(*BasicBlock)
	visit = func(b *BasicBlock) {
		order = append(order, b)
		for _, c := range d.children[b] {
			visit(c)
		}
	}
	visit(d.fn.Entry())
	return order
}

// ReversePostorder returns f's basic blocks in reverse postorder from
// the entry block (plain CFG traversal, not the dominator tree).
// Used by tx's outside-of-loop and in-loop instruction walks (spec
// §4.9/§4.10), matching tx.cpp's ReversePostOrderTraversal<Function*>
// and LoopBlocksDFS::beginRPO.
func ReversePostorder(f *Function) []*BasicBlock {
	if f.Entry() == nil {
		return nil
	}
	return reversePostorder(f.Entry())
}

// Reachable reports whether b was reached by the dominator computation.
func (d *DominatorTree) Reachable(b *BasicBlock) bool {
	if b == d.fn.Entry() {
		return true
	}
	_, ok := d.idom[b]
	return ok
}
