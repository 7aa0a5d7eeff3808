package restore

import (
	"errors"
	"testing"

	"github.com/mailbak/mailbak/internal/jmap"
)

func TestOrderByHierarchyParentsFirst(t *testing.T) {
	mailboxes := []jmap.Mailbox{
		{ID: "c", Name: "Grandchild", ParentID: "b"},
		{ID: "a", Name: "Root"},
		{ID: "b", Name: "Child", ParentID: "a"},
	}

	ordered, err := orderByHierarchy(mailboxes)
	if err != nil {
		t.Fatalf("orderByHierarchy() error = %v", err)
	}

	pos := make(map[string]int, len(ordered))
	for i, mb := range ordered {
		pos[mb.ID] = i
	}
	for _, mb := range mailboxes {
		if mb.ParentID == "" {
			continue
		}
		if pos[mb.ParentID] > pos[mb.ID] {
			t.Errorf("parent %s ordered after child %s", mb.ParentID, mb.ID)
		}
	}
}

func TestOrderByHierarchyExternalParent(t *testing.T) {
	// A parent outside the set counts as already satisfied.
	ordered, err := orderByHierarchy([]jmap.Mailbox{
		{ID: "b", Name: "Child", ParentID: "elsewhere"},
	})
	if err != nil {
		t.Fatalf("orderByHierarchy() error = %v", err)
	}
	if len(ordered) != 1 || ordered[0].ID != "b" {
		t.Errorf("ordered = %v, want [b]", ordered)
	}
}

func TestOrderByHierarchyDeterministic(t *testing.T) {
	mailboxes := []jmap.Mailbox{
		{ID: "z", Name: "Z"},
		{ID: "a", Name: "A"},
		{ID: "m", Name: "M"},
	}

	first, err := orderByHierarchy(mailboxes)
	if err != nil {
		t.Fatalf("orderByHierarchy() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := orderByHierarchy(mailboxes)
		if err != nil {
			t.Fatalf("orderByHierarchy() error = %v", err)
		}
		for j := range first {
			if again[j].ID != first[j].ID {
				t.Fatalf("run %d gave order %v, first run gave %v", i, again, first)
			}
		}
	}
}

func TestOrderByHierarchyCycle(t *testing.T) {
	_, err := orderByHierarchy([]jmap.Mailbox{
		{ID: "a", Name: "A", ParentID: "b"},
		{ID: "b", Name: "B", ParentID: "a"},
	})

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error = %v, want CycleError", err)
	}
	if cycleErr.ID != "a" {
		t.Errorf("cycle reported through %q, want the smallest id %q", cycleErr.ID, "a")
	}
}

func TestOrderByHierarchyEmpty(t *testing.T) {
	ordered, err := orderByHierarchy(nil)
	if err != nil {
		t.Fatalf("orderByHierarchy() error = %v", err)
	}
	if len(ordered) != 0 {
		t.Errorf("ordered = %v, want empty", ordered)
	}
}
