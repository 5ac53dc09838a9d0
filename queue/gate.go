package queue

import (
	"context"
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"ticketer/common/constant"
	"ticketer/common/errs"
	"ticketer/outbound/store"
	"time"
)

const sessionSubject = "cashier"

// Gate guards the cashier role with one shared PIN. The PIN is kept as a
// bcrypt hash at settings/pinHash and seeded from DefaultPin on first use.
// A verified PIN is exchanged for a signed session token.
type Gate struct {
	Store      store.Store
	DefaultPin string
	Secret     []byte
	SessionTTL time.Duration
	Cost       int

	TimeNow func() time.Time
}

func (g *Gate) Verify(ctx context.Context, pin string) error {
	hash, err := g.pinHash(ctx)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(pin)); err != nil {
		return errs.ErrInvalidPin
	}

	return nil
}

func (g *Gate) pinHash(ctx context.Context) ([]byte, error) {
	snap, err := g.Store.Read(ctx, constant.PathPinHash)
	if err != nil {
		return nil, err
	}

	var hash string
	if err := snap.Decode(&hash); err != nil {
		return nil, &errs.StoreError{Op: "read", Path: constant.PathPinHash, Err: err}
	}

	if hash != "" {
		return []byte(hash), nil
	}

	pin := g.DefaultPin
	if pin == "" {
		pin = constant.DefaultPin
	}

	seeded, err := g.hash(pin)
	if err != nil {
		return nil, err
	}

	if err := g.Store.Write(ctx, constant.PathPinHash, string(seeded)); err != nil {
		return nil, err
	}

	return seeded, nil
}

// ChangePin replaces the PIN. It must be six digits and match confirm;
// otherwise nothing is written.
func (g *Gate) ChangePin(ctx context.Context, pin, confirm string) error {
	if !validPin(pin) {
		return errs.ErrPinFormat
	}

	if pin != confirm {
		return errs.ErrPinMismatch
	}

	hash, err := g.hash(pin)
	if err != nil {
		return err
	}

	return g.Store.Write(ctx, constant.PathPinHash, string(hash))
}

func (g *Gate) hash(pin string) ([]byte, error) {
	cost := g.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	return hash, nil
}

func validPin(pin string) bool {
	if len(pin) != constant.PinLength {
		return false
	}

	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func (g *Gate) IssueToken() (string, time.Time, error) {
	now := g.now()
	expiresAt := now.Add(g.SessionTTL)

	claims := jwt.RegisteredClaims{
		Subject:   sessionSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

func (g *Gate) ParseToken(token string) error {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return g.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(sessionSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidSession, err)
	}

	return nil
}

func (g *Gate) now() time.Time {
	if g.TimeNow == nil {
		return time.Now()
	}

	return g.TimeNow()
}
