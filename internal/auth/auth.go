package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// PasswordCost is the bcrypt work factor for stored credentials.
const PasswordCost = 10

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), PasswordCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

var dummyHash = sync.OnceValue(func() []byte {
	b, err := bcrypt.GenerateFromPassword([]byte("unknown-account"), PasswordCost)
	if err != nil {
		panic(err)
	}
	return b
})

// CompareDummy does the work of CheckPassword against a throwaway hash and
// always reports false. Login runs it for unknown emails so that path takes
// as long as a wrong password.
func CompareDummy(pw string) bool {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(pw))
	return false
}

// Identity is what a verified token proves about the caller.
type Identity struct {
	UserID int64
	Email  string
}

type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Keyring holds the signing key plus older keys that still verify.
type Keyring struct {
	ActiveID string
	Keys     map[string][]byte
}

func NewKeyring(activeID, activeSecret string, previous map[string]string) Keyring {
	keys := make(map[string][]byte, len(previous)+1)
	for kid, s := range previous {
		keys[kid] = []byte(s)
	}
	keys[activeID] = []byte(activeSecret)
	return Keyring{ActiveID: activeID, Keys: keys}
}

type TokenService struct {
	keys Keyring
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenService(keys Keyring, ttl time.Duration) *TokenService {
	return &TokenService{keys: keys, ttl: ttl, now: time.Now}
}

// WithClock swaps the time source; used by expiry tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

func (s *TokenService) Issue(id Identity) (string, error) {
	now := s.now()
	c := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tok.Header["kid"] = s.keys.ActiveID
	return tok.SignedString(s.keys.Keys[s.keys.ActiveID])
}

func (s *TokenService) Verify(raw string) (Identity, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, s.keyFor,
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.UserID == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: c.UserID, Email: c.Email}, nil
}

func (s *TokenService) keyFor(t *jwt.Token) (any, error) {
	// block alg confusion
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		kid = s.keys.ActiveID
	}
	key, ok := s.keys.Keys[kid]
	if !ok {
		return nil, ErrInvalidToken
	}
	return key, nil
}
