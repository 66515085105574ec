package core

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultCategories seed the registry when nothing was persisted yet.
var DefaultCategories = []string{"ToDos", "Reminders", "Town Meeting"}

// Categories is the ordered list of labels notes are filed under.
// The order is chosen by the user and persisted; at least one entry always remains.
type Categories struct {
	names []string
}

// NewCategories creates a registry from the given names, falling back to
// DefaultCategories when none remain after cleanup.
func NewCategories(names []string) *Categories {
	c := &Categories{}
	c.Replace(names)
	return c
}

// Replace swaps the whole list, dropping blanks and duplicates.
func (c *Categories) Replace(names []string) {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || slices.Contains(cleaned, n) {
			continue
		}
		cleaned = append(cleaned, n)
	}
	if len(cleaned) == 0 {
		cleaned = slices.Clone(DefaultCategories)
	}
	c.names = cleaned
}

// List returns a copy of the categories in user order.
func (c *Categories) List() []string {
	return slices.Clone(c.names)
}

// Len returns the number of categories.
func (c *Categories) Len() int {
	return len(c.names)
}

// Contains reports whether name is registered (exact match).
func (c *Categories) Contains(name string) bool {
	return slices.Contains(c.names, name)
}

// Add appends a new category.
func (c *Categories) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyCategory
	}
	if c.Contains(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateCategory, name)
	}
	c.names = append(c.names, name)
	return nil
}

// Remove deletes a category. The last remaining one cannot be removed.
// Notes keep their category text either way.
func (c *Categories) Remove(name string) error {
	if len(c.names) <= 1 {
		return ErrLastCategory
	}
	i := slices.Index(c.names, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	c.names = slices.Delete(c.names, i, i+1)
	return nil
}

// Reorder moves the entry at from to position to.
func (c *Categories) Reorder(from, to int) error {
	n := len(c.names)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d with %d categories", ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}
	name := c.names[from]
	c.names = slices.Delete(c.names, from, from+1)
	c.names = slices.Insert(c.names, to, name)
	return nil
}
