package integrity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Profile holds argon2id cost parameters. Two profiles exist: a fast one for
// record-integrity checksums, where the threat model is row tampering detected
// at read time, and a slow one reserved for login credentials. Reusing the
// fast profile for passwords is a defect.
type Profile struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

const (
	saltLength = 32
	keyLength  = 32
)

// FastProfile is the default cost for record checksums.
var FastProfile = Profile{Time: 1, Memory: 64 * 1024, Threads: 4}

// SlowProfile is the default cost for credential hashes.
var SlowProfile = Profile{Time: 100, Memory: 64 * 1024, Threads: 4}

// Engine computes and verifies keyed argon2id checksums. The shared secret is
// injected once at construction and appended to every record serialization
// before hashing; the same engine instance must serve both the write and the
// read path, because a secret skew permanently invalidates stored checksums.
type Engine struct {
	secret string
	fast   Profile
	slow   Profile
}

// Option configures an Engine.
type Option func(*Engine)

// WithFastProfile overrides the record-checksum cost, mainly for tests.
func WithFastProfile(p Profile) Option {
	return func(e *Engine) { e.fast = p }
}

// WithSlowProfile overrides the credential cost, mainly for tests.
func WithSlowProfile(p Profile) Option {
	return func(e *Engine) { e.slow = p }
}

// NewEngine creates a checksum engine with the process-wide secret.
func NewEngine(secret string, opts ...Option) (*Engine, error) {
	if secret == "" {
		return nil, fmt.Errorf("checksum secret is required")
	}
	e := &Engine{secret: secret, fast: FastProfile, slow: SlowProfile}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Checksum hashes a record serialization plus the shared secret with the fast
// profile. A fresh random salt is drawn per call, so two checksums of the same
// input differ.
func (e *Engine) Checksum(serialized string) (string, error) {
	return hash(serialized+e.secret, e.fast)
}

// Verify re-derives the checksum for a record serialization plus the shared
// secret and compares in constant time. Malformed checksum strings are never
// an error: they report false and the caller decides how loudly to complain.
func (e *Engine) Verify(serialized, checksum string) bool {
	return verify(serialized+e.secret, checksum, e.costLimit())
}

// HashCredential hashes a login password with the slow profile. Credentials
// are salted but not keyed with the record secret; their strength comes from
// the work factor.
func (e *Engine) HashCredential(password string) (string, error) {
	return hash(password, e.slow)
}

// VerifyCredential checks a password against a stored credential hash.
func (e *Engine) VerifyCredential(password, hash string) bool {
	return verify(password, hash, e.costLimit())
}

// costLimit is the highest cost the engine itself would ever write, per
// parameter. Stored checksums carry their own parameters, so verification
// caps them here: the stored string is writable by whoever tampers with the
// row and must not choose the work factor.
func (e *Engine) costLimit() Profile {
	limit := e.fast
	if e.slow.Time > limit.Time {
		limit.Time = e.slow.Time
	}
	if e.slow.Memory > limit.Memory {
		limit.Memory = e.slow.Memory
	}
	if e.slow.Threads > limit.Threads {
		limit.Threads = e.slow.Threads
	}
	return limit
}

func hash(input string, p Profile) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(input), salt, p.Time, p.Memory, p.Threads, keyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// verify parses a PHC-formatted argon2id string, re-derives the key with the
// embedded salt and parameters and compares in constant time. Any parse
// failure reports false, as do parameters above the limit.
func verify(input, checksum string, limit Profile) bool {
	parts := strings.Split(checksum, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var p Profile
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return false
	}
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return false
	}
	if p.Time > limit.Time || p.Memory > limit.Memory || p.Threads > limit.Threads {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}
	key := argon2.IDKey([]byte(input), salt, p.Time, p.Memory, p.Threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1
}
