package pmachine

import "tps3/pkg/native"

// Malloc implements spec §4.5's allocator: the heap grows downward from
// the top of the data store. A block of size words is carved out below
// np, its size is recorded one word below the returned address, and the
// block is zero-filled.
func (m *Machine) Malloc(words int) (int, error) {
	if words < 1 {
		words = 1
	}
	newNp := m.np - (words + 1)
	if newNp <= m.sp {
		return 0, runtimeError("heap exhausted")
	}
	m.np = newNp
	m.dstore[m.np] = native.Word(words)
	addr := m.np + 1
	for i := 0; i < words; i++ {
		m.dstore[addr+i] = 0
	}
	return addr, nil
}

// Free releases a block only when it sits at the current heap bottom
// (p == np+1); otherwise the release is a no-op, since the allocator does
// no general coalescing (spec §4.5).
func (m *Machine) Free(addr int) {
	if addr <= 0 || addr >= dstoreSize {
		return
	}
	size := int(m.dstore[addr-1])
	if addr == m.np+1 {
		m.np += size + 1
	}
}
