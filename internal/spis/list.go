package spis

import "sort"

// Collection keeps entries permanently sorted by Entry.Less. It is not
// safe for concurrent use; the Store serializes access.
type Collection struct {
	entries []*Entry
}

func NewCollection() *Collection {
	return &Collection{}
}

func (c *Collection) Len() int { return len(c.entries) }

// Add inserts e at its sort position.
func (c *Collection) Add(e *Entry) {
	i := sort.Search(len(c.entries), func(i int) bool {
		return !c.entries[i].Less(e)
	})
	c.entries = append(c.entries, nil)
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = e
}

// Remove drops the entry with e's ID. Removing an absent entry is a
// no-op, which tolerates the timer-fire-after-manual-delete race.
func (c *Collection) Remove(e *Entry) bool {
	if e == nil {
		return false
	}
	return c.RemoveID(e.ID)
}

func (c *Collection) RemoveID(id string) bool {
	for i, x := range c.entries {
		if x.ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// FindByID does a linear scan; the store holds tens of entries.
func (c *Collection) FindByID(id string) *Entry {
	for _, e := range c.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// All returns the entries in sorted order. The slice is a copy; the
// entries are shared.
func (c *Collection) All() []*Entry {
	out := make([]*Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Resort restores the invariant after an in-place entry mutation.
func (c *Collection) Resort() {
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.entries[i].Less(c.entries[j])
	})
}
