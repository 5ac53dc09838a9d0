package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"ticketer/common/constant"
	"ticketer/common/errs"
	"ticketer/model"
	"ticketer/outbound/store"
)

// Numbering issues ticket numbers for one scheme.
type Numbering interface {
	Scheme() model.Scheme
	// Seed returns the meta fields a fresh day starts with.
	Seed() map[string]any
	Next(ctx context.Context, day string) (string, error)
}

// SequentialNumbering counts up from a random start picked at rollover.
// With Atomic set the counter is bumped in one store round-trip. Without
// it the counter is read then written back, and two concurrent callers can
// observe the same value.
type SequentialNumbering struct {
	Store  store.Store
	Atomic store.Atomic
	Intn   func(n int) int
}

func (n *SequentialNumbering) Scheme() model.Scheme {
	return model.SchemeSequential
}

func (n *SequentialNumbering) Seed() map[string]any {
	intn := n.Intn
	if intn == nil {
		intn = rand.IntN
	}

	start := constant.SequentialMinStart + intn(constant.SequentialMaxStart-constant.SequentialMinStart+1)

	return map[string]any{
		constant.MetaFieldStartNumber: start,
		constant.MetaFieldNextNumber:  start,
	}
}

func (n *SequentialNumbering) Next(ctx context.Context, day string) (string, error) {
	if n.Atomic != nil {
		val, err := n.Atomic.Increment(ctx, constant.PathNextNumber, 1)
		if err != nil {
			return "", err
		}

		return strconv.FormatInt(val-1, 10), nil
	}

	snap, err := n.Store.Read(ctx, constant.PathNextNumber)
	if err != nil {
		return "", err
	}

	if !snap.Exists() {
		return "", errs.ErrDayNotReady
	}

	var next int64
	if err := snap.Decode(&next); err != nil {
		return "", &errs.StoreError{Op: "read", Path: constant.PathNextNumber, Err: err}
	}

	err = n.Store.Update(ctx, constant.PathMeta, map[string]any{constant.MetaFieldNextNumber: next + 1})
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(next, 10), nil
}

// CodedNumbering draws a letter and three digits at random and remembers
// every issued code of the day under usedNumbers/<day>.
type CodedNumbering struct {
	Store       store.Store
	Atomic      store.Atomic
	Intn        func(n int) int
	MaxAttempts int
}

func (n *CodedNumbering) Scheme() model.Scheme {
	return model.SchemeCoded
}

func (n *CodedNumbering) Seed() map[string]any {
	return nil
}

// Next gives up with ErrGeneratorExhausted after MaxAttempts draws and
// marks nothing in that case.
func (n *CodedNumbering) Next(ctx context.Context, day string) (string, error) {
	attempts := n.MaxAttempts
	if attempts <= 0 {
		attempts = constant.DefaultCodedMaxAttempts
	}

	used := store.Join(constant.PathUsedNumbers, day)

	if n.Atomic != nil {
		for i := 0; i < attempts; i++ {
			code := n.draw()

			ok, err := n.Atomic.Claim(ctx, store.Join(used, code), true)
			if err != nil {
				return "", err
			}

			if ok {
				return code, nil
			}
		}

		return "", errs.ErrGeneratorExhausted
	}

	snap, err := n.Store.Read(ctx, used)
	if err != nil {
		return "", err
	}

	taken, err := snap.Children()
	if err != nil {
		return "", &errs.StoreError{Op: "read", Path: used, Err: err}
	}

	for i := 0; i < attempts; i++ {
		code := n.draw()
		if _, ok := taken[code]; ok {
			continue
		}

		if err := n.Store.Write(ctx, store.Join(used, code), true); err != nil {
			return "", err
		}

		return code, nil
	}

	return "", errs.ErrGeneratorExhausted
}

func (n *CodedNumbering) draw() string {
	intn := n.Intn
	if intn == nil {
		intn = rand.IntN
	}

	letter := constant.CodeLetters[intn(len(constant.CodeLetters))]
	return fmt.Sprintf("%c%03d", letter, intn(constant.CodeDigits))
}
