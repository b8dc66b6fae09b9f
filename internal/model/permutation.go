package model

import "fmt"

// Permutation is an arrangement of the four canonical labels as shown to a candidate.
type Permutation = [4]OptionLabel

// EncodePermutation packs a permutation into its 4-character storage form, e.g. "CADB".
func EncodePermutation(p Permutation) string {
	b := make([]byte, 0, len(p))
	for _, l := range p {
		b = append(b, l[0])
	}
	return string(b)
}

// DecodePermutation parses the storage form written by EncodePermutation.
func DecodePermutation(s string) (Permutation, error) {
	var p Permutation
	if len(s) != len(p) {
		return p, fmt.Errorf("permutation %q: want %d labels", s, len(p))
	}
	seen := make(map[OptionLabel]bool, len(p))
	for i := range p {
		l := OptionLabel(s[i : i+1])
		if !l.Valid() || seen[l] {
			return p, fmt.Errorf("permutation %q: bad label at %d", s, i)
		}
		seen[l] = true
		p[i] = l
	}
	return p, nil
}
