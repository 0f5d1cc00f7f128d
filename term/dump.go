package term

import (
	"io"

	"github.com/bradleyjkemp/memviz"
)

// DumpGraph writes a Graphviz rendering of the live hash-cons arena to w,
// for offline debugging of term sharing. Grounded on the teacher's
// dependency on memviz for memory/object-graph visualisation; repurposed
// here from gopher2600's historical use to dumping this engine's term
// arena instead of emulator RAM.
func (m *Manager) DumpGraph(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	memviz.Map(w, &m.table)
	return nil
}
