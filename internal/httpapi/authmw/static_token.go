package authmw

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidIngestToken is returned by StaticTokenAuthenticator.Check.
var ErrInvalidIngestToken = errors.New("invalid ingest token")

// StaticTokenAuthenticator supports the optional static-token auth mode
// for the externally-supplied ingest RPC (§6), for deployments that
// don't want to run a JWT issuer for a single machine-to-machine caller.
// Grounded on the teacher's PasswordManager bcrypt usage, repurposed to
// hash a single shared ingest token instead of per-user passwords.
type StaticTokenAuthenticator struct {
	hash []byte
}

// NewStaticTokenAuthenticator takes the bcrypt hash of the configured
// ingest token, as configured in IngestTokenHash; it is stored as given.
func NewStaticTokenAuthenticator(bcryptHash string) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{hash: []byte(bcryptHash)}
}

func HashIngestToken(token string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *StaticTokenAuthenticator) Check(presented string) error {
	if len(s.hash) == 0 {
		return ErrInvalidIngestToken
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(presented)); err != nil {
		return ErrInvalidIngestToken
	}
	return nil
}
