package taskstore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCapacityExceeded is returned when a bulk replace holds more tasks than the cap
var ErrCapacityExceeded = errors.New("task capacity exceeded")

// List is an ordered, in-memory task sequence with an optional capacity.
// It is not safe for concurrent use.
type List struct {
	items    []string
	maxTasks int // 0 = unbounded
}

// NewList creates an empty list. maxTasks <= 0 means unbounded.
func NewList(maxTasks int) *List {
	if maxTasks < 0 {
		maxTasks = 0
	}
	return &List{
		items:    make([]string, 0),
		maxTasks: maxTasks,
	}
}

// MaxTasks returns the capacity, 0 when unbounded
func (l *List) MaxTasks() int {
	return l.maxTasks
}

// Len returns the number of tasks
func (l *List) Len() int {
	return len(l.items)
}

// Full reports whether the bounded list has reached its capacity
func (l *List) Full() bool {
	return l.maxTasks > 0 && len(l.items) >= l.maxTasks
}

// Items returns a copy of the tasks in order
func (l *List) Items() []string {
	items := make([]string, len(l.items))
	copy(items, l.items)
	return items
}

// Add appends a task. Blank labels and adds at capacity are no-ops.
func (l *List) Add(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" || l.Full() {
		return false
	}
	l.items = append(l.items, label)
	return true
}

// Remove deletes the task at index. Out-of-range indexes are no-ops.
func (l *List) Remove(index int) bool {
	if index < 0 || index >= len(l.items) {
		return false
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return true
}

// CompleteAll clears the list. A bounded list is only cleared once it is full.
func (l *List) CompleteAll() bool {
	if len(l.items) == 0 {
		return false
	}
	if l.maxTasks > 0 && len(l.items) < l.maxTasks {
		return false
	}
	l.items = l.items[:0]
	return true
}

// CleanLabels trims every label and drops the blank ones
func CleanLabels(labels []string) []string {
	items := make([]string, 0, len(labels))
	for _, label := range labels {
		if label = strings.TrimSpace(label); label != "" {
			items = append(items, label)
		}
	}
	return items
}

// Replace swaps the whole list for labels, dropping blank entries
func (l *List) Replace(labels []string) error {
	items := CleanLabels(labels)
	if l.maxTasks > 0 && len(items) > l.maxTasks {
		return fmt.Errorf("%w: %d tasks, limit %d", ErrCapacityExceeded, len(items), l.maxTasks)
	}
	l.items = items
	return nil
}
