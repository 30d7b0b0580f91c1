// Package keygen derives the public key handed to Kadeploy from the SSH
// key vdc authenticates with.
//
// Deployed nodes only accept root logins with a key listed at deployment
// time, so the public half of the gateway key must travel with every
// deployment request.
package keygen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// AuthorizedKey returns the OpenSSH authorized_keys line of a PEM private key.
func AuthorizedKey(privatePEM []byte) (string, error) {
	signer, err := ssh.ParsePrivateKey(privatePEM)
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(signer.PublicKey()))), nil
}

// LoadAuthorizedKey returns the public key matching the private key at
// keyPath. The sibling "<keyPath>.pub" is preferred when present.
func LoadAuthorizedKey(keyPath string) (string, error) {
	// #nosec G304
	pub, err := os.ReadFile(keyPath + ".pub")
	switch {
	case err == nil:
		key, _, _, _, perr := ssh.ParseAuthorizedKey(pub)
		if perr != nil {
			return "", fmt.Errorf("failed to parse %s.pub: %w", keyPath, perr)
		}
		return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key))), nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("failed to read public key: %w", err)
	}

	// #nosec G304
	priv, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("failed to read private key: %w", err)
	}
	return AuthorizedKey(priv)
}
