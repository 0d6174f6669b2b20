package domain

// MergeResult is the outcome of reconciling a remote snapshot with local quotes.
type MergeResult struct {
	// Merged holds every remote quote in remote order followed by the
	// surviving local quotes in local order.
	Merged []Quote

	// Conflicts holds the local quotes discarded because the remote
	// snapshot carries a quote with the same text.
	Conflicts []Quote
}

// Merge reconciles remote with local using remote precedence.
//
// Remote quotes are trusted to be unique by text; only collisions between a
// local and a remote quote are resolved, always in favour of the remote one.
// The result is neither commutative nor idempotent across changing snapshots.
func Merge(remote, local []Quote) MergeResult {
	merged := make([]Quote, 0, len(remote)+len(local))
	merged = append(merged, remote...)

	seen := make(map[string]struct{}, len(remote))
	for _, q := range remote {
		seen[q.Text] = struct{}{}
	}

	var conflicts []Quote

	for _, q := range local {
		if _, ok := seen[q.Text]; ok {
			conflicts = append(conflicts, q)

			continue
		}

		merged = append(merged, q)
	}

	return MergeResult{Merged: merged, Conflicts: conflicts}
}
