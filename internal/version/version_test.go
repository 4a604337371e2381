package version_test

import (
	"testing"

	"github.com/mjishnu/StoreListings/internal/version"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want version.Version
		ok   bool
	}{
		{"1.2.3.4", version.Version{1, 2, 3, 4}, true},
		{"10.0.19041.0", version.Version{10, 0, 19041, 0}, true},
		{"6.6.11", version.Version{6, 6, 11, 0}, true},
		{"2", version.Version{2, 0, 0, 0}, true},
		{" 1.0 ", version.Version{1, 0, 0, 0}, true},
		{"6.6.11 (23272)", version.Version{}, false},
		{"1.2.3.4.5", version.Version{}, false},
		{"abc", version.Version{}, false},
		{"", version.Version{}, false},
	}
	for _, c := range cases {
		got, ok := version.Parse(c.in)
		if ok != c.ok {
			t.Errorf("Parse(%q) ok = %v, want %v", c.in, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("Parse(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCompare_TotalOrder(t *testing.T) {
	a := version.Version{1, 2, 3, 4}
	b := version.Version{1, 2, 3, 5}
	if !a.Less(b) {
		t.Errorf("%v should order before %v", a, b)
	}
	if b.Less(a) {
		t.Errorf("%v should not order before %v", b, a)
	}
	if a.Compare(a) != 0 {
		t.Errorf("Compare(self) = %d, want 0", a.Compare(a))
	}
	if !b.AtLeast(a) || a.AtLeast(b) {
		t.Error("AtLeast disagrees with Compare")
	}
}

func TestUint64_RoundTrip(t *testing.T) {
	v := version.Version{10, 0, 19041, 388}
	got := version.FromUint64(v.Uint64())
	if got != v {
		t.Errorf("FromUint64(Uint64()) = %v, want %v", got, v)
	}
	// 1.7.25531.0 as the catalog encodes it.
	const packed = uint64(1)<<48 | uint64(7)<<32 | uint64(25531)<<16
	if got := version.FromUint64(packed); got != (version.Version{1, 7, 25531, 0}) {
		t.Errorf("FromUint64 = %v, want 1.7.25531.0", got)
	}
}

func TestString(t *testing.T) {
	if s := (version.Version{1, 2, 0, 0}).String(); s != "1.2.0.0" {
		t.Errorf("String() = %q, want %q", s, "1.2.0.0")
	}
}
