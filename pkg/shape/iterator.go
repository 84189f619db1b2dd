package shape

// Iterator walks every multi-index of a shape in row-major order — the
// deterministic traversal spec.md §5 requires for both forward
// materialization and backward accumulation.
type Iterator struct {
	shp       Size
	idx       IndexArray
	remaining int
}

// NewIterator builds an iterator over shp. Call Next before the first Index.
func NewIterator(shp Size) *Iterator {
	return &Iterator{
		shp:       shp,
		idx:       make(IndexArray, len(shp)),
		remaining: TotalSize(shp),
	}
}

// Next advances to the next multi-index, returning false once every index
// has been visited. The very first call positions the iterator at the
// all-zeros index (or, for a 0-dim shape, the single scalar position).
func (it *Iterator) Next() bool {
	if it.remaining <= 0 {
		return false
	}
	if it.remaining == TotalSize(it.shp) {
		it.remaining--
		return true
	}
	for d := len(it.shp) - 1; d >= 0; d-- {
		it.idx[d]++
		if it.idx[d] < it.shp[d] {
			it.remaining--
			return true
		}
		it.idx[d] = 0
	}
	it.remaining = 0
	return false
}

// Index returns the current multi-index. Valid only after Next returns true.
func (it *Iterator) Index() IndexArray { return it.idx }
