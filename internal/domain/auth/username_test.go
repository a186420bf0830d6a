package auth_test

import (
	"errors"
	"strings"
	"testing"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

func TestCanonicalizeUsername(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"alice", "Alice"},
		{"Alice", "Alice"},
		{"alice_smith", "Alice smith"},
		{"  alice   smith  ", "Alice smith"},
		{"élodie", "Élodie"},
	}

	for _, tc := range cases {
		got, err := domain.CanonicalizeUsername(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalizeUsernameInvalid(t *testing.T) {
	t.Parallel()

	invalid := []string{
		"",
		"   ",
		"alice#1",
		"alice|bob",
		"a[lice]",
		"alice@bot",
		"name:spaced",
		strings.Repeat("a", 300),
	}

	for _, in := range invalid {
		if _, err := domain.CanonicalizeUsername(in); !errors.Is(err, domain.ErrInvalidUsername) {
			t.Fatalf("%q: expected ErrInvalidUsername, got %v", in, err)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	got, ok := domain.NormalizeTitle(0, "Main Page")
	if !ok || got != "Main_Page" {
		t.Fatalf("unexpected result: %q %v", got, ok)
	}

	// outside the main namespace the remote prefix is stripped
	got, ok = domain.NormalizeTitle(4, "Project:Village pump")
	if !ok || got != "Village_pump" {
		t.Fatalf("unexpected result: %q %v", got, ok)
	}

	if _, ok := domain.NormalizeTitle(0, "Bad[title]"); ok {
		t.Fatal("expected invalid title")
	}
	if _, ok := domain.NormalizeTitle(0, ""); ok {
		t.Fatal("expected invalid title")
	}
}
