package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "", normalizeText("  \n\t "))
	require.Equal(t, "a b c", normalizeText("a\n\n b\t\tc"))
	require.Equal(t, "x y", normalizeText("x\x00y"))
}

func TestChunkTextWindows(t *testing.T) {
	text := strings.Repeat("a", 2000)
	chunks := chunkText(text, 800, 80)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 800)
	require.Len(t, chunks[1], 800)
	// Step is size minus overlap, so the last window holds the remainder.
	require.Len(t, chunks[2], 2000-2*720)
}

func TestChunkTextOverlapKeepsBoundaryText(t *testing.T) {
	text := strings.Repeat("x", 790) + "important" + strings.Repeat("y", 400)
	chunks := chunkText(text, 800, 80)
	found := 0
	for _, c := range chunks {
		if strings.Contains(c, "important") {
			found++
		}
	}
	require.GreaterOrEqual(t, found, 1)
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := chunkText("short text", 800, 80)
	require.Equal(t, []string{"short text"}, chunks)
	require.Nil(t, chunkText("", 800, 80))
}
