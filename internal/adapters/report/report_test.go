package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkMessageShortText(t *testing.T) {
	chunks := ChunkMessage("hello", 2000)
	assert.Equal(t, []string{"hello"}, chunks)
}

func TestChunkMessagePrefersLineBoundaries(t *testing.T) {
	text := strings.Repeat("aaaaaaaaa\n", 5) + "bbbb"
	chunks := ChunkMessage(text, 25)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 25)
		assert.False(t, strings.HasPrefix(chunk, "\n"))
	}
	joined := strings.Join(chunks, "\n")
	assert.Equal(t, strings.TrimRight(text, "\n"), strings.TrimRight(joined, "\n"))
}

func TestChunkMessageHardSplitsOversizedLine(t *testing.T) {
	text := strings.Repeat("x", 45)
	chunks := ChunkMessage(text, 20)

	assert.Equal(t, []string{strings.Repeat("x", 20), strings.Repeat("x", 20), strings.Repeat("x", 5)}, chunks)
}
