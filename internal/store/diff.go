package store

// DedupeIDs returns ids without duplicates or empty strings, first occurrence wins.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// DiffIDs compares the current set against the wanted set.
// added keeps the order of wanted, removed keeps the order of current.
func DiffIDs(current, wanted []string) (added, removed []string) {
	cur := make(map[string]struct{}, len(current))
	for _, v := range current {
		cur[v] = struct{}{}
	}
	want := make(map[string]struct{}, len(wanted))
	for _, v := range wanted {
		want[v] = struct{}{}
	}

	added = []string{}
	for _, v := range wanted {
		if _, ok := cur[v]; !ok {
			added = append(added, v)
		}
	}
	removed = []string{}
	for _, v := range current {
		if _, ok := want[v]; !ok {
			removed = append(removed, v)
		}
	}
	return added, removed
}
