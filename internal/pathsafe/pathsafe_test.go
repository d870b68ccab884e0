package pathsafe

import "testing"

func TestValidateSnapshotID(t *testing.T) {
	reject := []string{
		"",
		".foo",
		"a/b",
		"a\\b",
		"a\x00b",
		string(make([]byte, 129)),
	}
	for _, s := range reject {
		if err := ValidateSnapshotID(s); err == nil {
			t.Errorf("ValidateSnapshotID(%q) = nil, want error", s)
		}
	}

	accept := []string{"a", "A1_-"}
	for _, s := range accept {
		if err := ValidateSnapshotID(s); err != nil {
			t.Errorf("ValidateSnapshotID(%q) = %v, want nil", s, err)
		}
	}
}

func TestValidateSnapshotID_ExactLengthBoundary(t *testing.T) {
	ok := make([]byte, maxSnapshotIDLen)
	for i := range ok {
		ok[i] = 'a'
	}
	if err := ValidateSnapshotID(string(ok)); err != nil {
		t.Errorf("128-char id rejected: %v", err)
	}

	tooLong := make([]byte, maxSnapshotIDLen+1)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	if err := ValidateSnapshotID(string(tooLong)); err == nil {
		t.Errorf("129-char id accepted, want rejection")
	}
}

func TestIsSafeRelativePath(t *testing.T) {
	reject := []string{"", "/x", "a/../b", "a/./b", "a\x00b"}
	for _, p := range reject {
		if err := IsSafeRelativePath(p); err == nil {
			t.Errorf("IsSafeRelativePath(%q) = nil, want error", p)
		}
	}

	accept := []string{"a", "a/b/c"}
	for _, p := range accept {
		if err := IsSafeRelativePath(p); err != nil {
			t.Errorf("IsSafeRelativePath(%q) = %v, want nil", p, err)
		}
	}
}
