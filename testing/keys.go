package testing

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	stdtesting "testing"
)

var (
	keysOnce   sync.Once
	privatePEM string
	publicPEM  string
	keysErr    error
)

// RSAKeyPair returns a PEM encoded RS256 key pair shared by the test binary.
func RSAKeyPair(t stdtesting.TB) (string, string) {
	t.Helper()
	keysOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			keysErr = err
			return
		}
		pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			keysErr = err
			return
		}
		privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
		publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub}))
	})
	if keysErr != nil {
		t.Fatalf("generate rsa key: %v", keysErr)
	}
	return privatePEM, publicPEM
}
