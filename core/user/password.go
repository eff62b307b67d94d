package user

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2DefaultIterations = 600000

func hashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IsPasswordHash reports whether stored looks like a hash this package can verify.
func IsPasswordHash(stored string) bool {
	return strings.HasPrefix(stored, "$2") || strings.HasPrefix(stored, "pbkdf2:")
}

// verifyPassword accepts bcrypt hashes, werkzeug style pbkdf2 hashes
// ("pbkdf2:sha256:600000$salt$hex") and, for records imported before hashing, plain text.
func verifyPassword(stored, pwd string) bool {
	switch {
	case stored == "":
		return false
	case strings.HasPrefix(stored, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(pwd)) == nil
	case strings.HasPrefix(stored, "pbkdf2:"):
		return verifyPBKDF2(stored, pwd)
	default:
		return subtle.ConstantTimeCompare([]byte(stored), []byte(pwd)) == 1
	}
}

func verifyPBKDF2(stored, pwd string) bool {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 {
		return false
	}
	method, salt, want := parts[0], parts[1], parts[2]

	// pbkdf2:<hash>[:<iterations>]
	params := strings.Split(method, ":")
	if len(params) < 2 {
		return false
	}
	var newHash func() hash.Hash
	switch params[1] {
	case "sha1":
		newHash = sha1.New
	case "sha256":
		newHash = sha256.New
	case "sha512":
		newHash = sha512.New
	default:
		return false
	}
	iterations := pbkdf2DefaultIterations
	if len(params) > 2 {
		n, err := strconv.Atoi(params[2])
		if err != nil || n <= 0 {
			return false
		}
		iterations = n
	}

	wantBytes, err := hex.DecodeString(want)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(pwd), []byte(salt), iterations, len(wantBytes), newHash)
	return subtle.ConstantTimeCompare(got, wantBytes) == 1
}
