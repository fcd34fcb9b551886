// Package installer — verify.go
//
// Signing key verification for the browser's apt repository. The
// vendor key is downloaded at install time and only trusted when one
// of its keys matches a pinned fingerprint. Fingerprints are pinned
// because they don't change when the key's expiry is extended.
package installer

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/crypto/openpgp"
)

// verifySigningKey parses an armored public key block, checks that a
// primary key or subkey carries one of the trusted fingerprints, and
// returns the keyring in binary form for apt's signed-by option.
func verifySigningKey(armored []byte, trusted []string) ([]byte, error) {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("signing key file contains no keys")
	}

	want := make(map[string]bool, len(trusted))
	for _, fp := range trusted {
		want[normalizeFingerprint(fp)] = true
	}

	matched := false
	for _, e := range entities {
		for _, fp := range entityFingerprints(e) {
			if want[fp] {
				matched = true
			}
		}
	}
	if !matched {
		return nil, fmt.Errorf("signing key fingerprint mismatch: got %s",
			strings.Join(entityFingerprints(entities[0]), ", "))
	}

	var keyring bytes.Buffer
	for _, e := range entities {
		if err := e.Serialize(&keyring); err != nil {
			return nil, fmt.Errorf("serialize keyring: %w", err)
		}
	}
	return keyring.Bytes(), nil
}

// entityFingerprints lists the primary key and subkey fingerprints.
func entityFingerprints(e *openpgp.Entity) []string {
	fps := []string{fmt.Sprintf("%X", e.PrimaryKey.Fingerprint[:])}
	for _, sub := range e.Subkeys {
		fps = append(fps, fmt.Sprintf("%X", sub.PublicKey.Fingerprint[:]))
	}
	return fps
}

// normalizeFingerprint accepts the spaced form gpg prints.
func normalizeFingerprint(fp string) string {
	return strings.ToUpper(strings.ReplaceAll(fp, " ", ""))
}
