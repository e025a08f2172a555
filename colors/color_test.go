package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	cases := []struct {
		in   string
		want Color4
	}{
		{"#FF0000", Red()},
		{"00ff00", Green()},
		{"#fff", White()},
		{"#00000080", New(0, 0, 0, 128.0/255.0)},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseHex(c.in)
			require.NoError(t, err)
			assert.InDelta(t, c.want.R, got.R, 1e-9)
			assert.InDelta(t, c.want.G, got.G, 1e-9)
			assert.InDelta(t, c.want.B, got.B, 1e-9)
			assert.InDelta(t, c.want.A, got.A, 1e-9)
		})
	}
}

func TestParseHexRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "#12", "#GGGGGG", "#1234567"} {
		_, err := ParseHex(in)
		assert.Error(t, err, in)
	}
}

func TestHexRoundTrip(t *testing.T) {
	c, err := ParseHex("#34D399")
	require.NoError(t, err)
	assert.Equal(t, "#34D399", c.Hex())
}

func TestMixAlphaTransparentIsIdentity(t *testing.T) {
	base := New(0.2, 0.3, 0.4, 1)
	got := base.MixAlpha(Red().WithAlpha(0), 1)
	assert.Equal(t, base, got)
}
