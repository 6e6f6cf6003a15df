package util

import "golang.org/x/text/cases"

// FoldCase returns s with Unicode case folding applied, so "ÉCOLE" and
// "école" compare equal. Both tag stores use it for case-insensitive search.
func FoldCase(s string) string {
	return cases.Fold().String(s)
}
