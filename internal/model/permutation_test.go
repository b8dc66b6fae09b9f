package model

import "testing"

func TestEncodeDecodePermutation(t *testing.T) {
	p := Permutation{OptionC, OptionA, OptionD, OptionB}
	s := EncodePermutation(p)
	if s != "CADB" {
		t.Fatalf("encode = %q, want CADB", s)
	}
	got, err := DecodePermutation(s)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != p {
		t.Fatalf("decode = %v, want %v", got, p)
	}
}

func TestDecodePermutationRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "ABC", "ABCDE", "AABC", "ABCE", "abcd"} {
		if _, err := DecodePermutation(s); err == nil {
			t.Errorf("DecodePermutation(%q) should fail", s)
		}
	}
}

func TestOptionLabelValid(t *testing.T) {
	for _, l := range CanonicalOptions {
		if !l.Valid() {
			t.Errorf("%s should be valid", l)
		}
	}
	for _, l := range []OptionLabel{"", "E", "a", "AB"} {
		if l.Valid() {
			t.Errorf("%q should be invalid", l)
		}
	}
}
