package queue

import (
	"context"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"ticketer/common/constant"
	"ticketer/common/errs"
	"ticketer/outbound/fanout"
	"ticketer/outbound/store"
	"time"
)

func TestDayKey(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	instant := time.Date(2026, 10, 16, 20, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		loc      *time.Location
		expected string
	}{
		{name: "utc", loc: time.UTC, expected: "2026-10-16"},
		{name: "ahead of utc crosses midnight", loc: jakarta, expected: "2026-10-17"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DayKey(instant, tc.loc))
		})
	}
}

func TestSequentialSeed(t *testing.T) {
	tests := []struct {
		name     string
		draw     int
		expected int
	}{
		{name: "lowest", draw: 0, expected: constant.SequentialMinStart},
		{name: "highest", draw: constant.SequentialMaxStart - constant.SequentialMinStart, expected: constant.SequentialMaxStart},
		{name: "in range", draw: 3821, expected: 4821},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var bound int
			numbering := &SequentialNumbering{Intn: func(n int) int {
				bound = n
				return tc.draw
			}}

			seed := numbering.Seed()

			assert.Equal(t, constant.SequentialMaxStart-constant.SequentialMinStart+1, bound)
			assert.Equal(t, tc.expected, seed[constant.MetaFieldStartNumber])
			assert.Equal(t, tc.expected, seed[constant.MetaFieldNextNumber])
		})
	}
}

func TestSequentialNext(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore(fanout.NewLocal())
			require.NoError(t, st.Write(ctx, constant.PathMeta, map[string]any{"nextNumber": 4821}))

			numbering := &SequentialNumbering{Store: st}
			if atomic {
				numbering.Atomic = st
			}

			first, err := numbering.Next(ctx, "2026-10-16")
			require.NoError(t, err)

			second, err := numbering.Next(ctx, "2026-10-16")
			require.NoError(t, err)

			assert.Equal(t, "4821", first)
			assert.Equal(t, "4822", second)
		})
	}
}

func TestSequentialNextWithoutMeta(t *testing.T) {
	st := store.NewMemoryStore(fanout.NewLocal())

	_, err := (&SequentialNumbering{Store: st}).Next(context.Background(), "2026-10-16")
	assert.ErrorIs(t, err, errs.ErrDayNotReady)
}

func TestCodedDraw(t *testing.T) {
	draws := []int{0, 7, 23, 999}
	numbering := &CodedNumbering{Intn: func(n int) int {
		next := draws[0]
		draws = draws[1:]
		return next
	}}

	assert.Equal(t, "A007", numbering.draw())
	assert.Equal(t, "Z999", numbering.draw())
}

func TestCodedAlphabetSkipsAmbiguousLetters(t *testing.T) {
	assert.Len(t, constant.CodeLetters, 24)
	assert.NotContains(t, constant.CodeLetters, "I")
	assert.NotContains(t, constant.CodeLetters, "O")
}

func TestCodedNext(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore(fanout.NewLocal())
			require.NoError(t, st.Write(ctx, "usedNumbers/2026-10-16/B010", true))

			// first draw collides with B010, second is free
			draws := []int{1, 10, 1, 11}
			numbering := &CodedNumbering{Store: st, Intn: func(n int) int {
				next := draws[0]
				draws = draws[1:]
				return next
			}}
			if atomic {
				numbering.Atomic = st
			}

			code, err := numbering.Next(ctx, "2026-10-16")
			require.NoError(t, err)
			assert.Equal(t, "B011", code)

			snap, err := st.Read(ctx, "usedNumbers/2026-10-16/B011")
			require.NoError(t, err)
			assert.True(t, snap.Exists())
		})
	}
}

func TestCodedNextExhausted(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore(fanout.NewLocal())
			require.NoError(t, st.Write(ctx, "usedNumbers/2026-10-16", allCodes()))

			before, err := st.Read(ctx, "usedNumbers/2026-10-16")
			require.NoError(t, err)

			numbering := &CodedNumbering{Store: st}
			if atomic {
				numbering.Atomic = st
			}

			_, err = numbering.Next(ctx, "2026-10-16")
			assert.ErrorIs(t, err, errs.ErrGeneratorExhausted)

			after, err := st.Read(ctx, "usedNumbers/2026-10-16")
			require.NoError(t, err)
			assert.Equal(t, before.Value, after.Value)
		})
	}
}

func allCodes() map[string]bool {
	codes := make(map[string]bool, len(constant.CodeLetters)*constant.CodeDigits)
	for _, letter := range constant.CodeLetters {
		for digits := 0; digits < constant.CodeDigits; digits++ {
			codes[fmt.Sprintf("%c%03d", letter, digits)] = true
		}
	}

	return codes
}
