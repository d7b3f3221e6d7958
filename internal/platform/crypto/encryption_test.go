package crypto

import (
	"strings"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New("unit-test-passphrase")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc := newTestService(t)

	cases := []string{
		"John",
		"",
		"a:b:c",                    // contains the ciphertext delimiter
		"1600 Pennsylvania Ave NW", // spaces
		"Åsa Öström",               // multibyte
		strings.Repeat("x", 100),
	}
	for _, plain := range cases {
		encrypted, err := svc.EncryptField(plain)
		if err != nil {
			t.Fatalf("EncryptField(%q): %v", plain, err)
		}
		decrypted, err := svc.DecryptField(encrypted)
		if err != nil {
			t.Fatalf("DecryptField(%q): %v", plain, err)
		}
		if decrypted != plain {
			t.Fatalf("round trip of %q gave %q", plain, decrypted)
		}
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.EncryptField("same input")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.EncryptField("same input")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("two encryptions of the same plaintext must differ")
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	svc := newTestService(t)

	cases := []string{
		"plaintext-without-delimiter",
		"john.doe@example.com",
		"zz:zz",
		"deadbeef:",
		":deadbeef",
		"00112233445566778899aabbccddeeff:0011", // ciphertext not block aligned
	}
	for _, input := range cases {
		if _, err := svc.DecryptField(input); err == nil {
			t.Fatalf("DecryptField(%q) should fail", input)
		}
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	svc := newTestService(t)
	other, err := New("a-different-passphrase")
	if err != nil {
		t.Fatal(err)
	}

	encrypted, err := svc.EncryptField("sensitive value")
	if err != nil {
		t.Fatal(err)
	}
	if plain, err := other.DecryptField(encrypted); err == nil && plain == "sensitive value" {
		t.Fatal("decrypting with the wrong key must not recover the plaintext")
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New with empty secret should fail")
	}
	if _, err := New("   "); err == nil {
		t.Fatal("New with blank secret should fail")
	}
}
