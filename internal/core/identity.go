package core

import (
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/airtunes2/airplay2/internal/cryptoutil"
)

// identity is the receiver's long-term key material: the Ed25519
// identity used in Pair-Setup/Pair-Verify, and the RSA key used to
// unwrap an encrypted ANNOUNCE's AES key and to sign Apple-Challenge
// (§6).
type identity struct {
	ed25519Pub  ed25519.PublicKey
	ed25519Priv ed25519.PrivateKey
	rsaPriv     *rsa.PrivateKey
}

// loadIdentity derives the Ed25519 keypair from the configured hex
// seed (generating and persisting one into conf if absent isn't
// possible here since Conf is immutable at runtime; an empty seed is
// only expected on a throwaway/test instance) and loads or creates the
// RSA device key at rsaKeyPath.
func loadIdentity(ed25519Seed, rsaKeyPath string) (*identity, error) {
	var seed []byte
	if ed25519Seed != "" {
		var err error
		seed, err = hex.DecodeString(ed25519Seed)
		if err != nil {
			return nil, fmt.Errorf("decoding deviceEd25519Seed: %w", err)
		}
	} else {
		pub, priv, err := cryptoutil.GenerateEd25519()
		if err != nil {
			return nil, err
		}
		rsaPriv, err := loadOrCreateRSAKey(rsaKeyPath)
		if err != nil {
			return nil, err
		}
		return &identity{ed25519Pub: pub, ed25519Priv: priv, rsaPriv: rsaPriv}, nil
	}

	pub, priv := cryptoutil.Ed25519FromSeed(seed)
	rsaPriv, err := loadOrCreateRSAKey(rsaKeyPath)
	if err != nil {
		return nil, err
	}
	return &identity{ed25519Pub: pub, ed25519Priv: priv, rsaPriv: rsaPriv}, nil
}

func loadOrCreateRSAKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return cryptoutil.ParseRSAPrivateKeyPEM(data)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	priv, err := cryptoutil.GenerateRSAKey()
	if err != nil {
		return nil, err
	}
	if werr := os.WriteFile(path, cryptoutil.EncodeRSAPrivateKeyPEM(priv), 0o600); werr != nil {
		return nil, werr
	}
	return priv, nil
}
