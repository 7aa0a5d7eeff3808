package restore

import (
	"fmt"
	"sort"

	"github.com/mailbak/mailbak/internal/jmap"
)

// CycleError reports a parent loop in the stored mailbox hierarchy.
type CycleError struct {
	ID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("mailbox hierarchy has a parent cycle involving %s", e.ID)
}

// orderByHierarchy sorts mailboxes so that every parent precedes its
// children. Parent references outside the input set are treated as
// already satisfied. The order is deterministic: ties break on id.
func orderByHierarchy(mailboxes []jmap.Mailbox) ([]jmap.Mailbox, error) {
	byID := make(map[string]jmap.Mailbox, len(mailboxes))
	for _, mb := range mailboxes {
		byID[mb.ID] = mb
	}

	children := make(map[string][]string)
	indegree := make(map[string]int, len(mailboxes))
	for _, mb := range mailboxes {
		if _, inSet := byID[mb.ParentID]; inSet {
			indegree[mb.ID] = 1
			children[mb.ParentID] = append(children[mb.ParentID], mb.ID)
		} else {
			indegree[mb.ID] = 0
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	ordered := make([]jmap.Mailbox, 0, len(mailboxes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byID[id])

		next := children[id]
		sort.Strings(next)
		for _, child := range next {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(ordered) < len(mailboxes) {
		// Every remaining mailbox sits on a cycle; name the smallest
		// id so the report is stable.
		var stuck []string
		for id, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, &CycleError{ID: stuck[0]}
	}
	return ordered, nil
}
