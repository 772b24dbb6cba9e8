// Package document implements the shared document model: an ordered
// sequence of text sections, each split by an output cursor into committed
// child output and pending user input, mutated under one exclusive lock
// shared by the I/O thread and the GUI thread.
//
// Supplements original_source/src/model/{document,section}.rs, adapted from
// Rust String/byte-index text to Go []byte with explicit UTF-8 boundary
// stepping.
package document

import "sync"

// Document is the mutable model shared between the I/O reactor and the
// GUI. All access goes through its methods, which serialize mutation (and
// reads that must observe a consistent snapshot) behind a single mutex.
// Hold time is bounded to one operation, and neither thread may block on
// I/O while holding it.
type Document struct {
	mu       sync.Mutex
	sections []*Section
	nextID   SectionID
}

// New returns an empty Document.
func New() *Document {
	return &Document{}
}

// NewSection appends a new, empty section and returns it. It becomes the
// new trailing section: exactly one section at a time is designated
// trailing, and it is always the last one in the sequence.
func (d *Document) NewSection() *Section {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	sec := newSection(d.nextID)
	d.sections = append(d.sections, sec)
	return sec
}

// Sections returns a snapshot of the section list. The Section pointers
// themselves are shared; their fields must still be read/written through
// Document's methods or while holding WithLock.
func (d *Document) Sections() []*Section {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Section, len(d.sections))
	copy(out, d.sections)
	return out
}

// Trailing returns the trailing section (the last one), or nil if the
// document has no sections yet.
func (d *Document) Trailing() *Section {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sections) == 0 {
		return nil
	}
	return d.sections[len(d.sections)-1]
}

// AppendOutput appends bytes of child output to sec, at its output cursor.
func (d *Document) AppendOutput(sec *Section, b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sec.appendOutput(b)
}

// ExecuteInputAction applies one GUI-driven cursor action to sec.
func (d *Document) ExecuteInputAction(sec *Section, action CursorAction) ActionResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sec.executeInputAction(action)
}

// WithLock runs fn while holding the document's exclusive lock, for callers
// (e.g. a renderer) that need to read several fields of one or more
// sections as a consistent snapshot. fn must not block on I/O.
func (d *Document) WithLock(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}
