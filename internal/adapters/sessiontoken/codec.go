// Package sessiontoken carries comparison sessions as signed client-held
// tokens, so no server process keeps session state.
package sessiontoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/ranking"
)

const defaultTTL = 24 * time.Hour

var (
	// ErrInvalidSession is returned for tokens that are malformed, carry a
	// bad signature or have expired.
	ErrInvalidSession = fmt.Errorf("%w: invalid session token", ranking.ErrInvalidArgument)

	// ErrEmptySecret is returned by NewCodec when no secret is given.
	ErrEmptySecret = errors.New("sessiontoken: secret cannot be empty")
)

// claims is the token body. Queue head is the current opponent.
type claims struct {
	jwt.RegisteredClaims
	List        string   `json:"list"`
	Candidate   string   `json:"candidate"`
	Rating      int      `json:"rating"`
	Comparisons int      `json:"comparisons"`
	Queue       []string `json:"queue"`
	Step        int      `json:"step"`
	AddedAt     int64    `json:"added_at"`
}

// Codec signs and verifies session tokens with HS256.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithTTL sets the lifetime of issued tokens.
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock sets the time source for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec builds a Codec for secret.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	c := &Codec{secret: []byte(secret), ttl: defaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL is the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Encode signs sess into a token that expires after the codec TTL.
func (c *Codec) Encode(sess ranking.Session) (string, error) {
	now := c.now()
	queue := make([]string, len(sess.Queue))
	for i, ref := range sess.Queue {
		queue[i] = string(ref)
	}
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.Owner,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		List:        sess.List,
		Candidate:   string(sess.Candidate),
		Rating:      sess.Rating,
		Comparisons: sess.Comparisons,
		Queue:       queue,
		Step:        sess.Step,
		AddedAt:     sess.AddedAt.UnixMilli(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Decode verifies token and returns the session it carries.
func (c *Codec) Decode(token string) (ranking.Session, error) {
	var cl claims
	parsed, err := jwt.ParseWithClaims(token, &cl, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidSession
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ranking.Session{}, fmt.Errorf("%w: expired", ErrInvalidSession)
		}
		return ranking.Session{}, ErrInvalidSession
	}
	if cl.ID == "" || cl.Subject == "" || cl.Candidate == "" || cl.Step < 0 {
		return ranking.Session{}, ErrInvalidSession
	}

	queue := make([]model.BeerRef, len(cl.Queue))
	for i, ref := range cl.Queue {
		queue[i] = model.BeerRef(ref)
	}
	return ranking.Session{
		ID:          cl.ID,
		Owner:       cl.Subject,
		List:        cl.List,
		Candidate:   model.BeerRef(cl.Candidate),
		Rating:      cl.Rating,
		Comparisons: cl.Comparisons,
		Queue:       queue,
		Step:        cl.Step,
		AddedAt:     time.UnixMilli(cl.AddedAt).UTC(),
	}, nil
}
