package signature_test

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherHexKey = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	digest := sha256.Sum256([]byte("Bill"))

	sig, err := signature.Sign(digest[:], pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	account := signature.DerivePublic(pk.PublicKey)
	if !strings.HasPrefix(account, "0x04") || len(account) != 132 {
		t.Logf("got: %s", account)
		t.Fatalf("Should get back an uncompressed public key account.")
	}

	if !signature.Verify(account, digest[:], sig) {
		t.Fatalf("Should be able to verify the signature.")
	}

	if !signature.Verify(account, digest[:], sig[:128]) {
		t.Fatalf("Should be able to verify the signature without the recovery id.")
	}

	other := sha256.Sum256([]byte("Jill"))
	if signature.Verify(account, other[:], sig) {
		t.Fatalf("Should not verify the signature against different data.")
	}

	otherPK, err := crypto.HexToECDSA(otherHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	if signature.Verify(signature.DerivePublic(otherPK.PublicKey), digest[:], sig) {
		t.Fatalf("Should not verify the signature against a different account.")
	}
}

func Test_SignDigestLength(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	if _, err := signature.Sign([]byte("short"), pk); err == nil {
		t.Fatalf("Should not be able to sign a digest that is not 32 bytes.")
	}
}

func Test_VerifyMalformed(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	digest := sha256.Sum256([]byte("Bill"))
	sig, err := signature.Sign(digest[:], pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}
	account := signature.DerivePublic(pk.PublicKey)

	tt := []struct {
		name    string
		account string
		sig     string
	}{
		{name: "empty-account", account: "", sig: sig},
		{name: "bad-account", account: "0xzz", sig: sig},
		{name: "not-a-key", account: "0x0102", sig: sig},
		{name: "bad-sig-hex", account: account, sig: "zz"},
		{name: "short-sig", account: account, sig: sig[:20]},
		{name: "empty-sig", account: account, sig: ""},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if signature.Verify(tst.account, digest[:], tst.sig) {
				t.Fatalf("Test %s:\tShould not verify malformed input.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	h := signature.Hash(value)
	if len(h) != 64 {
		t.Logf("got: %s", h)
		t.Fatalf("Should get back a 64 character hash.")
	}

	if h2 := signature.Hash(value); h != h2 {
		t.Logf("got: %s", h2)
		t.Logf("exp: %s", h)
		t.Fatalf("Should get back the same hash twice.")
	}
}
