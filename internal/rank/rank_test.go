package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	assert.Equal(t, Basic, TierFor(0))
	assert.Equal(t, Basic, TierFor(14))
	assert.Equal(t, Pro, TierFor(15))
	assert.Equal(t, Pro, TierFor(29))
	assert.Equal(t, Elite, TierFor(30))
	assert.Equal(t, Elite, TierFor(1000))
}

func TestTierMonotonic(t *testing.T) {
	prev := TierFor(0)
	for p := 1; p <= 100; p++ {
		cur := TierFor(p)
		assert.GreaterOrEqual(t, int(cur), int(prev), "tier dropped at %d points", p)
		prev = cur
	}
}

func TestStars(t *testing.T) {
	assert.Equal(t, "☆☆☆", Stars(Basic))
	assert.Equal(t, "★★☆", Stars(Pro))
	assert.Equal(t, "★★★", Stars(Elite))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "☆☆☆ BASIC [0]", Title(0, ""))
	assert.Equal(t, "★★☆ PRO [15]", Title(15, ""))
	assert.Equal(t, "★★★ ELITE [30]", Title(30, ""))
}

func TestTitleOwnerLabel(t *testing.T) {
	// Owner keeps the same star encoding, only the label changes.
	assert.Equal(t, "☆☆☆ СМКЦ [5]", Title(5, "СМКЦ"))
	assert.Equal(t, "★★★ СМКЦ [42]", Title(42, "СМКЦ"))
}

func TestTitleTruncated(t *testing.T) {
	got := Title(1234567, "")
	assert.LessOrEqual(t, len([]rune(got)), TitleLimit)
}

func TestTitleIdempotent(t *testing.T) {
	assert.Equal(t, Title(17, ""), Title(17, ""))
}

func TestNext(t *testing.T) {
	next, remaining, ok := Next(10)
	assert.True(t, ok)
	assert.Equal(t, Pro, next)
	assert.Equal(t, 5, remaining)

	next, remaining, ok = Next(20)
	assert.True(t, ok)
	assert.Equal(t, Elite, next)
	assert.Equal(t, 10, remaining)

	_, _, ok = Next(30)
	assert.False(t, ok)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(0))
	assert.Equal(t, 100, Progress(30))
	assert.Equal(t, 33, Progress(5))
	assert.Equal(t, 33, Progress(20))
}
