package model

// Catalog is the full checklist catalog: role name -> checklist name ->
// ordered task list. Task order is significant; tasks are referenced by
// index while editing and walked front to back during a run. A role with
// zero checklists and a checklist with zero tasks are both valid states.
//
// The catalog is persisted as a single JSON document and is only mutated
// through the catalog repository, which saves after every change.
type Catalog map[string]map[string][]string

// Roles returns the role names present in the catalog.
func (c Catalog) Roles() []string {
	out := make([]string, 0, len(c))
	for r := range c {
		out = append(out, r)
	}
	return out
}

// Checklists returns the checklist names under a role. The second return
// value is false when the role does not exist.
func (c Catalog) Checklists(role string) ([]string, bool) {
	lists, ok := c[role]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(lists))
	for n := range lists {
		out = append(out, n)
	}
	return out, true
}

// Tasks returns the ordered task list for (role, checklist). The second
// return value is false when either level is missing.
func (c Catalog) Tasks(role, checklist string) ([]string, bool) {
	lists, ok := c[role]
	if !ok {
		return nil, false
	}
	tasks, ok := lists[checklist]
	if !ok {
		return nil, false
	}
	return tasks, true
}
