package operators

import "testing"

func TestHashAndVerifyToken(t *testing.T) {
	hash, err := HashToken("s3cret")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal the plain token")
	}
	if !VerifyToken(hash, "s3cret") {
		t.Error("matching token should verify")
	}
	if VerifyToken(hash, "wrong") {
		t.Error("wrong token must not verify")
	}
}
