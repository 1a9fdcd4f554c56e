package vars

import (
	"bytes"
	"errors"
	"testing"
)

func ptr(s string) *string { return &s }

func TestIntRoundTrip(t *testing.T) {
	s := NewStore()
	for _, v := range []int64{0, -1, 42, -42, 2147483647, -2147483648} {
		if err := s.SetInt("x", v); err != nil {
			t.Fatalf("SetInt(%d): %s", v, err)
		}
		got, err := s.GetInt("x")
		if err != nil {
			t.Fatalf("GetInt after SetInt(%d): %s", v, err)
		}
		if got != v {
			t.Fatalf("got %d, want %d", got, v)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	s := NewStore()
	want := "hello\x00world" // embedded-NUL-safe bytes, byte-exact
	if err := s.SetString("x", &want); err != nil {
		t.Fatalf("SetString: %s", err)
	}
	got, ok := s.GetString("x")
	if !ok || got != want {
		t.Fatalf("got (%q, %v), want (%q, true)", got, ok, want)
	}
}

func TestUnsetIsStickyForReads(t *testing.T) {
	s := NewStore()
	if err := s.SetString("x", ptr("1")); err != nil {
		t.Fatal(err)
	}
	if err := s.SetString("x", nil); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.GetString("x"); ok {
		t.Fatalf("GetString should report unset")
	}
	if _, err := s.GetInt("x"); err == nil {
		t.Fatalf("GetInt should fail on unset variable")
	}
}

func TestIntParseStrictness(t *testing.T) {
	ok := []string{"0", "-1", "2147483647"}
	bad := []string{"", " 1", "1 ", "1a", "0x10", "+1"}

	for _, v := range ok {
		s := NewStore()
		s.SetString("x", ptr(v))
		if _, err := s.GetInt("x"); err != nil {
			t.Errorf("GetInt(%q): unexpected error %s", v, err)
		}
	}
	for _, v := range bad {
		s := NewStore()
		s.SetString("x", ptr(v))
		if _, err := s.GetInt("x"); err == nil {
			t.Errorf("GetInt(%q): expected error, got none", v)
		}
	}
}

func TestSetStringRejectsEmptyName(t *testing.T) {
	s := NewStore()
	err := s.SetString("", ptr("1"))
	var nameErr *NameError
	if !errors.As(err, &nameErr) {
		t.Fatalf("got %v, want *NameError", err)
	}
}

func TestShow(t *testing.T) {
	s := NewStore()
	if err := s.SetInt("x", -42); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	s.Show(&buf)
	if buf.String() != "{x=-42}" {
		t.Fatalf("got %q, want %q", buf.String(), "{x=-42}")
	}

	s.SetString("x", nil)
	buf.Reset()
	s.Show(&buf)
	if buf.String() != "{x }" {
		t.Fatalf("got %q, want %q", buf.String(), "{x }")
	}
}

func TestShowEmpty(t *testing.T) {
	s := NewStore()
	var buf bytes.Buffer
	s.Show(&buf)
	if buf.String() != "{}" {
		t.Fatalf("got %q, want %q", buf.String(), "{}")
	}
}

func TestShowPreservesInsertionOrder(t *testing.T) {
	s := NewStore()
	s.SetInt("b", 1)
	s.SetInt("a", 2)
	s.SetInt("b", 3) // update in place, should not move

	var buf bytes.Buffer
	s.Show(&buf)
	if buf.String() != "{b=3, a=2}" {
		t.Fatalf("got %q, want %q", buf.String(), "{b=3, a=2}")
	}
}
