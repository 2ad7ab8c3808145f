package project

// DiffResult contains the results of comparing the current listings against
// the previously seen identifiers
type DiffResult struct {
	New     []*Project // listings absent from the seen set, page order
	IDs     []string   // every current id, page order, for persistence
	Changed bool       // true iff New is non-empty
}

// Diff compares current listings against seen and returns the new ones.
//
// Page order is kept. Duplicate ids within current are not collapsed: each
// occurrence is checked against seen as loaded, not against ids found earlier
// in the same slice.
func Diff(current []*Project, seen SeenSet) *DiffResult {
	result := &DiffResult{
		New: make([]*Project, 0),
		IDs: make([]string, 0, len(current)),
	}

	for _, p := range current {
		result.IDs = append(result.IDs, p.ID)

		if !seen.Has(p.ID) {
			result.New = append(result.New, p)
		}
	}

	result.Changed = len(result.New) > 0
	return result
}
