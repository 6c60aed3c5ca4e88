package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"flightres/internal/fr"
)

// Entity is a record kept in a Collection. Implementations are pointer types,
// so the stored instance can be merged in place and compared by identity.
type Entity[E any] interface {
	comparable
	EntityID() string
	SetEntityID(id string)
	MergeFrom(src E)
	Clone() E
}

// Collection is the in-memory, ordered collection of one entity kind backed
// by a single document. The document is rewritten wholesale on Save.
//
// All mutations and all document I/O happen under mu, so Add, Remove, Update
// and Save calls on one collection never interleave.
type Collection[E Entity[E]] struct {
	name   string
	docs   fr.DocumentStore
	logger fr.Logger
	idgen  fr.IDGenerator

	mu    sync.Mutex
	items []E
}

func newCollection[E Entity[E]](name string, docs fr.DocumentStore, logger fr.Logger, idgen fr.IDGenerator) (*Collection[E], error) {
	c := &Collection[E]{
		name:   name,
		docs:   docs,
		logger: logger,
		idgen:  idgen,
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// load reads the backing document once at construction. A document that
// cannot be decoded leaves the collection empty; a document that cannot be
// read at all is returned as an error.
func (c *Collection[E]) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok, err := c.docs.ReadDocument(c.name)
	if err != nil {
		c.logger.Error("failed to read document", "document", c.name, "location", c.docs.Location(c.name), "error", err)
		return &fr.PersistenceError{Op: "load", Document: c.name, Err: err}
	}
	if !ok {
		c.items = nil
		return nil
	}

	var decoded []E
	if err := json.Unmarshal(data, &decoded); err != nil {
		c.logger.Error("failed to decode document, starting empty", "document", c.name, "location", c.docs.Location(c.name), "error", err)
		c.items = nil
		return nil
	}

	var zero E
	items := make([]E, 0, len(decoded))
	for _, item := range decoded {
		if item == zero {
			continue
		}
		items = append(items, item)
	}
	c.items = items

	c.logger.Info("document loaded", "document", c.name, "count", len(items))
	return nil
}

// GetAll returns the stored instances in insertion order. The slice is a
// fresh copy; the elements are the live instances.
func (c *Collection[E]) GetAll() []E {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]E, len(c.items))
	copy(out, c.items)
	return out
}

// Snapshot returns detached copies of every stored instance.
func (c *Collection[E]) Snapshot() []E {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]E, len(c.items))
	for i, item := range c.items {
		out[i] = item.Clone()
	}
	return out
}

// Len returns the number of stored instances.
func (c *Collection[E]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Find returns the stored instance with id. It never fails: a missing or
// empty id reports ok=false.
func (c *Collection[E]) Find(id string) (E, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findLocked(id)
}

// FindCopy returns a detached copy of the instance with id, cloned while the
// collection is locked.
func (c *Collection[E]) FindCopy(id string) (E, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.findLocked(id)
	if !ok {
		return item, false
	}
	return item.Clone(), true
}

func (c *Collection[E]) findLocked(id string) (E, bool) {
	var zero E
	if id == "" {
		return zero, false
	}
	for _, item := range c.items {
		if item.EntityID() == id {
			return item, true
		}
	}
	return zero, false
}

// Add appends e, assigning a fresh identifier when none is set.
// It does not persist; call Save.
func (c *Collection[E]) Add(e E) error {
	return c.add(e, nil)
}

// add runs attach on e under the lock, after the ID checks pass.
func (c *Collection[E]) add(e E, attach func(E)) error {
	var zero E
	if e == zero {
		return fmt.Errorf("%s: entity is required: %w", c.name, fr.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e.EntityID() == "" {
		e.SetEntityID(c.idgen.New())
	} else if _, exists := c.findLocked(e.EntityID()); exists {
		return fmt.Errorf("%s: duplicate id %s: %w", c.name, e.EntityID(), fr.ErrInvalidArgument)
	}

	if attach != nil {
		attach(e)
	}
	c.items = append(c.items, e)
	return nil
}

// Remove deletes e from the collection by identity. Removing an instance
// that is not stored is a no-op.
func (c *Collection[E]) Remove(e E) error {
	var zero E
	if e == zero {
		return fmt.Errorf("%s: entity is required: %w", c.name, fr.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(e)
	return nil
}

func (c *Collection[E]) removeLocked(e E) {
	for i, item := range c.items {
		if item == e {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// RemoveByID deletes the instance with id.
func (c *Collection[E]) RemoveByID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.findLocked(id)
	if !ok {
		return fmt.Errorf("%s: id %q: %w", c.name, id, fr.ErrNotFound)
	}
	c.removeLocked(item)
	return nil
}

// Update merges the mutable fields of e onto the stored instance with the
// same ID, so existing holders of that instance observe the change.
func (c *Collection[E]) Update(e E) error {
	return c.update(e, nil)
}

// update runs attach on the stored instance under the lock, after merging.
func (c *Collection[E]) update(e E, attach func(E)) error {
	var zero E
	if e == zero || e.EntityID() == "" {
		return fmt.Errorf("%s: id is required: %w", c.name, fr.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.findLocked(e.EntityID())
	if !ok {
		return fmt.Errorf("%s: id %q: %w", c.name, e.EntityID(), fr.ErrNotFound)
	}

	if existing != e {
		existing.MergeFrom(e)
	}
	if attach != nil {
		attach(existing)
	}
	return nil
}

// Any reports whether match returns true for some stored instance.
func (c *Collection[E]) Any(match func(E) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.items {
		if match(item) {
			return true
		}
	}
	return false
}

// Save serializes the full collection and replaces the backing document.
// On failure the in-memory state is kept; it diverges from the document until
// the next successful Save.
func (c *Collection[E]) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.items
	if items == nil {
		items = []E{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		c.logger.Error("failed to encode document", "document", c.name, "error", err)
		return &fr.PersistenceError{Op: "save", Document: c.name, Err: err}
	}

	if err := c.docs.WriteDocument(c.name, data); err != nil {
		c.logger.Error("failed to save document", "document", c.name, "location", c.docs.Location(c.name), "error", err)
		return &fr.PersistenceError{Op: "save", Document: c.name, Err: err}
	}

	c.logger.Debug("document saved", "document", c.name, "count", len(items))
	return nil
}

// Delete removes the backing document and clears the collection.
// Dev-data tooling only.
func (c *Collection[E]) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.docs.DeleteDocument(c.name); err != nil {
		c.logger.Error("failed to delete document", "document", c.name, "location", c.docs.Location(c.name), "error", err)
		return &fr.PersistenceError{Op: "delete", Document: c.name, Err: err}
	}
	c.items = nil
	return nil
}
