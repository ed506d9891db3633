package password

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	digest, err := Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "correct horse battery" {
		t.Fatalf("digest must not equal the plain password")
	}

	if !Verify("correct horse battery", digest) {
		t.Fatalf("expected verify to succeed for matching password")
	}
	if Verify("wrong password!!", digest) {
		t.Fatalf("expected verify to fail for wrong password")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	if _, err := Hash("short"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestHashRejectsOverlongPassword(t *testing.T) {
	long := strings.Repeat("a", MaxLength+1)
	if _, err := Hash(long); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestHashIsSalted(t *testing.T) {
	a, err := Hash("same password here")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash("same password here")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password must differ (salting)")
	}
}
