package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashKind identifies the encoding of a stored password credential.
type HashKind int

const (
	// HashUnknown means the stored value matched no supported encoding.
	HashUnknown HashKind = iota
	// HashBcrypt is the legacy adaptive salted encoding ("$2..." prefix).
	HashBcrypt
	// HashSHA256 is a 64-character hex SHA-256 digest.
	HashSHA256
)

// ErrUnrecognizedHash is returned when a stored credential matches neither
// supported encoding. This is a data-integrity problem, not a failed
// verification.
var ErrUnrecognizedHash = errors.New("unrecognized password hash encoding")

const sha256HexLen = 64

// ClassifyHash inspects a stored credential string and reports its encoding.
// Bcrypt is recognized by its "$2" version marker; SHA-256 by being exactly
// 64 hex characters, case-insensitively. Anything else is an error.
func ClassifyHash(stored string) (HashKind, error) {
	if strings.HasPrefix(stored, "$2") {
		return HashBcrypt, nil
	}
	if len(stored) == sha256HexLen && isHex(stored) {
		return HashSHA256, nil
	}
	return HashUnknown, ErrUnrecognizedHash
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// SHA256Hex returns the lowercase hex SHA-256 digest of the plaintext.
func SHA256Hex(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// VerifyBcrypt reports whether the plaintext matches a bcrypt hash.
func VerifyBcrypt(stored, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
}

// VerifySHA256 reports whether the plaintext matches a hex SHA-256 digest.
// The stored side is compared case-insensitively.
func VerifySHA256(stored, plain string) bool {
	computed := SHA256Hex(plain)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(computed)) == 1
}
