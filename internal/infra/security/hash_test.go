package security

import (
	"strings"
	"testing"
)

func TestHasherHashAndCompareSuccess(t *testing.T) {
	hasher := NewHasher(DefaultArgon2Config())
	password := "correct horse battery staple"

	encoded, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if encoded == "" {
		t.Fatal("Hash returned empty string")
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 2 {
		t.Fatalf("unexpected hash format: %q", encoded)
	}

	ok, err := hasher.Compare(password, encoded)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}

	if !ok {
		t.Fatal("Compare returned false for correct password")
	}
}

func TestHasherCompareIncorrectPassword(t *testing.T) {
	hasher := NewHasher(DefaultArgon2Config())

	encoded, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	ok, err := hasher.Compare("Tr0ub4dor&3", encoded)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}

	if ok {
		t.Fatal("Compare returned true for incorrect password")
	}
}

func TestHasherHashesAreSalted(t *testing.T) {
	hasher := NewHasher(DefaultArgon2Config())
	password := "correct horse battery staple"

	first, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	second, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestHasherCompareMalformedHash(t *testing.T) {
	hasher := NewHasher(DefaultArgon2Config())

	cases := []string{
		"not-an-encoded-hash",
		"!!!:!!!",
		"b25seXNhbHQ=:",
	}

	for _, encoded := range cases {
		if _, err := hasher.Compare("password", encoded); err == nil {
			t.Fatalf("expected error for malformed hash %q", encoded)
		}
	}
}

func TestHasherCompareEmptyInputs(t *testing.T) {
	hasher := NewHasher(DefaultArgon2Config())

	ok, err := hasher.Compare("", "salt:hash")
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if ok {
		t.Fatal("Compare returned true for empty password")
	}

	ok, err = hasher.Compare("password", "")
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	if ok {
		t.Fatal("Compare returned true for empty hash")
	}
}

func TestNewHasherFillsDefaults(t *testing.T) {
	hasher := NewHasher(Argon2Config{})

	def := DefaultArgon2Config()
	if hasher.cfg != def {
		t.Fatalf("expected default costs, got %+v", hasher.cfg)
	}
}
