package cryptoutil

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // mandated by RFC 5054 group parameters
	"crypto/sha512"
	"errors"
	"math/big"
)

// SRP-6a, RFC 5054 group 3072 (the group AirPlay's Pair-Setup uses). No
// library in the retrieved example pack implements SRP; this is hand-built
// on math/big, matching the RFC directly (see DESIGN.md).

// ErrBadSRPProof is returned when a peer's SRP proof does not match.
var ErrBadSRPProof = errors.New("srp: proof mismatch")

var srpN, srpG *big.Int

func init() {
	srpN, _ = new(big.Int).SetString(""+
		"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437"+
		"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05"+
		"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B"+
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33"+
		"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864"+
		"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E208E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF",
		16)
	srpG = big.NewInt(5)
}

// SRPGroup3072 returns the group modulus and generator used throughout
// Pair-Setup: the RFC 5054 3072-bit safe prime (384-byte B/A values) with
// generator 5.
func SRPGroup3072() (n, g *big.Int) {
	return new(big.Int).Set(srpN), new(big.Int).Set(srpG)
}

func srpHash(parts ...[]byte) *big.Int {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

func padTo(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

// SRPVerifier derives the SRP password verifier v = g^x mod N for username
// "Pair-Setup" and the given salt/PIN, per RFC 5054 §2.4 (x = H(salt ||
// H(I || ":" || P))), using SHA-1 for the inner hash as mandated by the
// HomeKit profile and SHA-512 elsewhere.
func SRPVerifier(salt []byte, username, password string) *big.Int {
	inner := sha1.Sum([]byte(username + ":" + password)) //nolint:gosec
	x := srpHash(salt, inner[:])
	n, g := SRPGroup3072()
	return new(big.Int).Exp(g, x, n)
}

// SRPServer holds server-side (M2-producing) SRP state across the
// exchange.
type SRPServer struct {
	n, g     *big.Int
	v        *big.Int
	b        *big.Int
	pubB     *big.Int
	salt     []byte
	username string
	sessKey  []byte
	aPub     []byte
}

// NewSRPServer starts a fresh exchange for the given verifier and salt.
func NewSRPServer(salt []byte, username string, verifier *big.Int) (*SRPServer, error) {
	n, g := SRPGroup3072()

	bBytes := make([]byte, 32)
	if _, err := rand.Read(bBytes); err != nil {
		return nil, err
	}
	b := new(big.Int).SetBytes(bBytes)

	k := srpHash(n.Bytes(), padTo(g.Bytes(), len(n.Bytes())))
	k.Mod(k, n)

	// B = k*v + g^b mod N
	gb := new(big.Int).Exp(g, b, n)
	kv := new(big.Int).Mul(k, verifier)
	pubB := new(big.Int).Add(kv, gb)
	pubB.Mod(pubB, n)

	return &SRPServer{n: n, g: g, v: verifier, b: b, pubB: pubB, salt: salt, username: username}, nil
}

// PublicKey returns B, padded to the modulus byte length.
func (s *SRPServer) PublicKey() []byte {
	return padTo(s.pubB.Bytes(), len(s.n.Bytes()))
}

// Salt returns the stored salt.
func (s *SRPServer) Salt() []byte { return s.salt }

// ComputeSessionKey derives the shared session key from the client's A,
// returning an error if A mod N == 0 (a safety check RFC 5054 mandates).
func (s *SRPServer) ComputeSessionKey(aBytes []byte) error {
	a := new(big.Int).SetBytes(aBytes)
	if new(big.Int).Mod(a, s.n).Sign() == 0 {
		return errors.New("srp: invalid client public key")
	}

	nLen := len(s.n.Bytes())
	u := srpHash(padTo(aBytes, nLen), padTo(s.pubB.Bytes(), nLen))

	// S = (A * v^u) ^ b mod N
	vu := new(big.Int).Exp(s.v, u, s.n)
	avu := new(big.Int).Mul(a, vu)
	avu.Mod(avu, s.n)
	sKey := new(big.Int).Exp(avu, s.b, s.n)

	h := sha512.Sum512(padTo(sKey.Bytes(), nLen))
	s.sessKey = h[:]
	s.aPub = aBytes
	return nil
}

// M1 returns the client proof's expected value: M = H(H(N) xor H(g) ||
// H(I) || salt || A || B || K).
func (s *SRPServer) expectedM1() []byte {
	nLen := len(s.n.Bytes())
	hn := srpHash(s.n.Bytes())
	hg := srpHash(padTo(s.g.Bytes(), nLen))
	hxor := make([]byte, 64)
	hnb, hgb := padTo(hn.Bytes(), 64), padTo(hg.Bytes(), 64)
	for i := range hxor {
		hxor[i] = hnb[i] ^ hgb[i]
	}
	hi := srpHash([]byte(s.username))

	m := srpHash(hxor, hi.Bytes(), s.salt, padTo(s.aPub, nLen), s.PublicKey(), s.sessKey)
	return padTo(m.Bytes(), 64)
}

// VerifyM1 checks the client's proof and returns the server's M2 proof on
// success.
func (s *SRPServer) VerifyM1(clientProof []byte) ([]byte, error) {
	expected := s.expectedM1()
	if !hmac.Equal(expected, clientProof) {
		return nil, ErrBadSRPProof
	}

	nLen := len(s.n.Bytes())
	m2 := srpHash(padTo(s.aPub, nLen), clientProof, s.sessKey)
	return padTo(m2.Bytes(), 64), nil
}

// SessionKey returns the derived shared secret once ComputeSessionKey has
// run.
func (s *SRPServer) SessionKey() []byte { return s.sessKey }
