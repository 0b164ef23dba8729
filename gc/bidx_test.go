package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// geom mirrors a small but realistic layout: few enough nids per block
// that indirect_blks stays small and every branch of StartBidxOfNode is
// reachable with hand-checkable node offsets.
var geom = Geometry{NIDSPerBlock: 4, ADDRSPerBlock: 100, ADDRSPerInode: 10}

func TestStartBidxOfNode_Inode(t *testing.T) {
	assert.Equal(t, int64(0), geom.StartBidxOfNode(0))
}

func TestStartBidxOfNode_DirectDnodes(t *testing.T) {
	assert.Equal(t, int64(10), geom.StartBidxOfNode(1))  // bidx 0
	assert.Equal(t, int64(110), geom.StartBidxOfNode(2)) // bidx 1
}

func TestStartBidxOfNode_FirstIndirectEntry(t *testing.T) {
	// node_ofs == 3 is the first offset past the two direct dnodes; the
	// formula's floor division puts it at bidx 2, continuing the
	// sequence started by node_ofs 1 and 2.
	assert.Equal(t, int64(210), geom.StartBidxOfNode(3))
}

func TestStartBidxOfNode_MonotonicNonDecreasing(t *testing.T) {
	prev := geom.StartBidxOfNode(0)
	for ofs := uint32(1); ofs <= uint32(2*geom.IndirectBlks()); ofs++ {
		cur := geom.StartBidxOfNode(ofs)
		assert.GreaterOrEqualf(t, cur, prev, "node_ofs %d regressed", ofs)
		prev = cur
	}
}

func TestStartBidxOfNode_DoubleIndirectBoundary(t *testing.T) {
	indirectBlks := geom.IndirectBlks()
	atBoundary := geom.StartBidxOfNode(uint32(indirectBlks))
	pastBoundary := geom.StartBidxOfNode(uint32(indirectBlks + 1))
	assert.GreaterOrEqual(t, pastBoundary, atBoundary)
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 0, floorDiv(0, 5))
	assert.Equal(t, 0, floorDiv(4, 5))
	assert.Equal(t, -1, floorDiv(-1, 5))
	assert.Equal(t, -1, floorDiv(-5, 5))
	assert.Equal(t, -2, floorDiv(-6, 5))
}
