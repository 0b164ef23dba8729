package gc

// Node-tree geometry. NIDSPerBlock is a filesystem-format constant (how
// many nid slots fit in one indirect node block); ADDRSPerBlock and
// ADDRSPerInode are how many data block addresses fit in a regular node
// block and in the inode block respectively. These are injected rather
// than hardcoded so callers can match their own on-disk layout; Geometry
// bundles them for start_bidx_of_node (spec.md sec. 4.5).
type Geometry struct {
	NIDSPerBlock  int
	ADDRSPerBlock int
	ADDRSPerInode int
}

// IndirectBlks is the node offset of the last dnode under the second
// first-level indirect node: two direct dnodes, two indirect node pages,
// and their 2*NIDSPerBlock dnodes follow the inode (spec.md sec. 4.5).
func (g Geometry) IndirectBlks() int {
	return 2*g.NIDSPerBlock + 4
}

// floorDiv returns a/b rounded toward negative infinity (the ⌊⌋ in
// spec.md sec. 4.5 is mathematical floor division, not C's truncating "/";
// the two disagree whenever the numerator is negative, which happens at
// every indirect-node boundary crossed here).
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// StartBidxOfNode maps a node offset within an inode's node tree to the
// first data block index that node addresses (spec.md sec. 4.5, sec. 9 "start_bidx
// sentinel"). node_ofs == 0 is the inode itself and returns 0 explicitly,
// removing the uninitialized-bidx ambiguity spec.md sec. 9 flags in the
// source this was distilled from.
func (g Geometry) StartBidxOfNode(nodeOfs uint32) int64 {
	ofs := int(nodeOfs)
	if ofs == 0 {
		return 0
	}

	var bidx int
	switch {
	case ofs <= 2:
		bidx = ofs - 1
	case ofs <= g.IndirectBlks():
		dec := floorDiv(ofs-4, g.NIDSPerBlock+1)
		bidx = ofs - 2 - dec
	default:
		dec := floorDiv(ofs-g.IndirectBlks()-3, g.NIDSPerBlock+1)
		bidx = ofs - 5 - dec
	}

	return int64(bidx)*int64(g.ADDRSPerBlock) + int64(g.ADDRSPerInode)
}
