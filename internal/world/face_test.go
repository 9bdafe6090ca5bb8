package world

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaceBits(t *testing.T) {
	assert.Equal(t, MaskTop, FaceTop.Bit())
	assert.Equal(t, MaskBottom, FaceBottom.Bit())
	assert.Equal(t, MaskLeft, FaceLeft.Bit())
	assert.Equal(t, MaskRight, FaceRight.Bit())
	assert.Equal(t, MaskFront, FaceFront.Bit())
	assert.Equal(t, MaskBack, FaceBack.Bit())

	var all FaceMask
	for _, f := range Faces {
		all = all.With(f)
	}
	assert.Equal(t, MaskAll, all)
}

func TestFaceOpposite(t *testing.T) {
	assert.Equal(t, FaceBottom, FaceTop.Opposite())
	assert.Equal(t, FaceRight, FaceLeft.Opposite())
	assert.Equal(t, FaceBack, FaceFront.Opposite())

	for _, f := range Faces {
		assert.Equal(t, f, f.Opposite().Opposite())
		o, opp := f.Offset(), f.Opposite().Offset()
		assert.Equal(t, 0, o.X+opp.X, f.String())
		assert.Equal(t, 0, o.Y+opp.Y, f.String())
		assert.Equal(t, 0, o.Z+opp.Z, f.String())
	}
}

func TestFaceNormalMatchesOffset(t *testing.T) {
	for _, f := range Faces {
		n := f.Normal()
		o := f.Offset()
		assert.Equal(t, float32(o.X), n.X())
		assert.Equal(t, float32(o.Y), n.Y())
		assert.Equal(t, float32(o.Z), n.Z())
		assert.InDelta(t, 1.0, n.Len(), 1e-6)
	}
	// +Y считается верхом
	assert.Equal(t, 1, FaceTop.Offset().Y)
}

func TestFaceMaskOps(t *testing.T) {
	m := MaskNone.With(FaceTop).With(FaceLeft)
	assert.True(t, m.Has(FaceTop))
	assert.True(t, m.Has(FaceLeft))
	assert.False(t, m.Has(FaceRight))
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, "top|left", m.String())
	assert.Equal(t, []Face{FaceTop, FaceLeft}, m.Faces())
	assert.Equal(t, MaskTop, m.Without(FaceLeft))

	assert.Equal(t, "none", MaskNone.String())
	assert.Empty(t, MaskNone.Names())
	assert.Equal(t, []string{"top", "bottom", "left", "right", "front", "back"}, MaskAll.Names())
}

func TestFaceMaskCount(t *testing.T) {
	for m := 0; m < MaskCount; m++ {
		assert.Equal(t, bits.OnesCount(uint(m)), FaceMask(m).Count())
		assert.True(t, FaceMask(m).Valid())
	}
	assert.False(t, FaceMask(MaskCount).Valid())
}

func TestParseMask(t *testing.T) {
	m, err := ParseMask(63)
	require.NoError(t, err)
	assert.Equal(t, MaskAll, m)

	m, err = ParseMask(0)
	require.NoError(t, err)
	assert.Equal(t, MaskNone, m)

	_, err = ParseMask(64)
	assert.ErrorIs(t, err, ErrInvalidMask)
	_, err = ParseMask(-1)
	assert.ErrorIs(t, err, ErrInvalidMask)
}
