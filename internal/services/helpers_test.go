package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// patternPNG renders an 8x8 black and white image with one pixel per bit of
// pattern. Its average hash is a fixed permutation of pattern, so the Hamming
// distance between two pattern images equals the number of differing bits.
func patternPNG(t *testing.T, pattern uint64) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := 0; i < 64; i++ {
		c := color.Gray{Y: 0}
		if pattern&(uint64(1)<<uint(i)) != 0 {
			c = color.Gray{Y: 255}
		}
		img.SetGray(i%8, i/8, c)
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// Patterns with roughly half the bits set, far apart from each other.
const (
	patternA uint64 = 0x00000000ffffffff
	patternB uint64 = 0xffffffff00000000
	patternC uint64 = 0x0f0f0f0f0f0f0f0f
	patternD uint64 = 0x3333333333333333
)

// flipBits returns pattern with its lowest n bits inverted.
func flipBits(pattern uint64, n int) uint64 {
	for i := 0; i < n; i++ {
		pattern ^= uint64(1) << uint(i)
	}
	return pattern
}
