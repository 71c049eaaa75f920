package signature_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/dxidlabs/ledger/foundation/blockchain/database"
	"github.com/dxidlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	edSeed = "0x9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	edPub  = "0xd75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"
	edSig  = "0xe5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e065224901555fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b"

	pkHexKey = "0xfae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
)

// =============================================================================

func Test_ED25519Vector(t *testing.T) {
	p := signature.ED25519()

	pub, err := p.PublicKey(hexutil.MustDecode(edSeed))
	if err != nil {
		t.Fatalf("Should be able to derive the public key: %s", err)
	}

	if hexutil.Encode(pub) != edPub {
		t.Logf("got: %s", hexutil.Encode(pub))
		t.Logf("exp: %s", edPub)
		t.Fatalf("Should get back the right public key.")
	}

	sig, err := p.SignMessage(hexutil.MustDecode(edSeed), nil)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if hexutil.Encode(sig) != edSig {
		t.Logf("got: %s", hexutil.Encode(sig))
		t.Logf("exp: %s", edSig)
		t.Fatalf("Should get back the right signature.")
	}
}

func Test_Signing(t *testing.T) {
	for _, scheme := range []string{signature.SchemeED25519, signature.SchemeDilithium3, signature.SchemeSecp256k1} {
		f := func(t *testing.T) {
			p, err := signature.Retrieve(scheme)
			if err != nil {
				t.Fatalf("Should be able to retrieve the provider: %s", err)
			}

			kp, err := p.GenerateKey()
			if err != nil {
				t.Fatalf("Should be able to generate a key: %s", err)
			}

			msg := []byte("bill pays jill")
			sig, err := p.SignMessage(kp.SecretKey, msg)
			if err != nil {
				t.Fatalf("Should be able to sign data: %s", err)
			}

			ok, err := p.VerifySignature(kp.PublicKey, msg, sig)
			if err != nil || !ok {
				t.Fatalf("Should be able to verify the signature: %v %s", ok, err)
			}

			ok, err = p.VerifySignature(kp.PublicKey, []byte("jill pays bill"), sig)
			if err != nil || ok {
				t.Fatalf("Should fail to verify a different message: %v %s", ok, err)
			}

			if _, err := p.VerifySignature(kp.PublicKey, msg, sig[:10]); err == nil {
				t.Fatalf("Should get an error for a truncated signature.")
			}

			if _, err := p.VerifySignature(kp.PublicKey[:5], msg, sig); err == nil {
				t.Fatalf("Should get an error for a truncated public key.")
			}

			pub, err := p.PublicKey(kp.SecretKey)
			if err != nil {
				t.Fatalf("Should be able to derive the public key: %s", err)
			}
			if !bytes.Equal(pub, kp.PublicKey) {
				t.Fatalf("Should derive the same public key.")
			}

			addr, err := p.AddressFromPublicKey(kp.PublicKey)
			if err != nil {
				t.Fatalf("Should be able to derive the address: %s", err)
			}
			if addr != kp.Address() {
				t.Fatalf("Should get the same address from the key pair.")
			}
		}

		t.Run(scheme, f)
	}
}

func Test_Secp256k1Key(t *testing.T) {
	p := signature.Secp256k1()

	pub, err := p.PublicKey(hexutil.MustDecode(pkHexKey))
	if err != nil {
		t.Fatalf("Should be able to derive the public key: %s", err)
	}

	if len(pub) != 33 {
		t.Fatalf("Should get a compressed public key, got %d bytes.", len(pub))
	}

	sig1, err := p.SignMessage(hexutil.MustDecode(pkHexKey), []byte("Bill"))
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	sig2, err := p.SignMessage(hexutil.MustDecode(pkHexKey), []byte("Bill"))
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if !bytes.Equal(sig1, sig2) {
		t.Fatalf("Should get the same signature for the same data.")
	}

	if len(sig1) != 64 {
		t.Fatalf("Should get a 64 byte signature, got %d.", len(sig1))
	}
}

func Test_HashHeader(t *testing.T) {
	header := database.BlockHeader{Height: 1, Difficulty: 10, Nonce: 5}

	h1 := signature.HashHeader(header)
	h2 := signature.HashHeader(header)
	if h1 != h2 {
		t.Fatalf("Should get back the same hash twice.")
	}

	header.Nonce++
	if signature.HashHeader(header) == h1 {
		t.Fatalf("Should get a different hash for a different nonce.")
	}

	for _, p := range []signature.Provider{signature.ED25519(), signature.Secp256k1()} {
		if p.HashBlockHeader(header) != signature.HashHeader(header) {
			t.Fatalf("Should get the same header hash from every provider.")
		}
	}
}

func Test_KeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miner.key")

	kp, err := signature.ED25519().GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	if err := signature.SaveKey(path, kp.SecretKey); err != nil {
		t.Fatalf("Should be able to save the key: %s", err)
	}

	sk, err := signature.LoadKey(path)
	if err != nil {
		t.Fatalf("Should be able to load the key: %s", err)
	}

	if !bytes.Equal(sk, kp.SecretKey) {
		t.Fatalf("Should get back the same key.")
	}

	if _, err := signature.Retrieve("rsa"); err == nil {
		t.Fatalf("Should get an error for an unknown scheme.")
	}
}
