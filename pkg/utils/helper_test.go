package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBetween(t *testing.T) {
	assert.Equal(t, "payload", FindBetween("xx[payload]yy", "[", "]"))
	assert.Equal(t, "", FindBetween("no markers here", "[", "]"))
	assert.Equal(t, "", FindBetween("open [ only", "[", "]"))
	assert.Equal(t, "first", FindBetween("[first][second]", "[", "]"))
}

func TestAnswerCode(t *testing.T) {
	// "AB" sums to 65+66=131, key suffix "1f" adds 31.
	code, err := AnswerCode("key1f", "AB")
	require.NoError(t, err)
	assert.Equal(t, "162", code)

	_, err = AnswerCode("k", "AB")
	assert.Error(t, err, "key too short")

	_, err = AnswerCode("keyzz", "AB")
	assert.Error(t, err, "non-hex suffix")
}

func TestRandomRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		v := RandomRange(3, 7)
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 7)
	}

	assert.Equal(t, 5, RandomRange(5, 5))
	assert.Equal(t, 9, RandomRange(9, 2), "degenerate bounds collapse to min")
}

func TestEncodeURLParams(t *testing.T) {
	params := struct {
		HL string `url:"hl"`
		NS int    `url:"ns"`
	}{HL: "en-US", NS: 15}

	encoded, err := EncodeURLParams(params)
	require.NoError(t, err)
	assert.Equal(t, "hl=en-US&ns=15", encoded)
}
