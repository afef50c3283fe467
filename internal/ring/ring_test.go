package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteWithinCapacity(t *testing.T) {
	b := New(8)
	b.Write([]byte("abcd"))

	assert.Equal(t, 4, b.Len())
	seg1, seg2 := b.ReadAll()
	assert.Equal(t, "abcd", string(seg1))
	assert.Nil(t, seg2)
}

func TestWriteWraps(t *testing.T) {
	b := New(4)
	b.Write([]byte("abcd"))
	b.Write([]byte("ef")) // overwrites "ab"

	assert.Equal(t, 4, b.Len())
	seg1, seg2 := b.ReadAll()
	combined := append(append([]byte{}, seg1...), seg2...)
	assert.Equal(t, "cdef", string(combined))
}

func TestWriteLargerThanCapacityKeepsTail(t *testing.T) {
	b := New(4)
	b.Write([]byte("abcdefgh"))

	assert.Equal(t, 4, b.Len())
	seg1, seg2 := b.ReadAll()
	assert.Nil(t, seg2)
	assert.Equal(t, "efgh", string(seg1))
}

func TestReadAllEmpty(t *testing.T) {
	b := New(8)
	seg1, seg2 := b.ReadAll()
	assert.Nil(t, seg1)
	assert.Nil(t, seg2)
	assert.True(t, b.Empty())
}

func TestZeroCapacityDiscardsWrites(t *testing.T) {
	b := New(0)
	b.Write([]byte("anything"))
	assert.Equal(t, 0, b.Len())
	assert.True(t, b.Empty())
}

func TestUtf8BoundarySkipsContinuationBytes(t *testing.T) {
	b := New(4)
	// Write a 4-byte UTF-8 sequence (e.g. an emoji) into a 4-byte buffer,
	// then overwrite its lead byte with one extra byte so ByteAt(0) is a
	// continuation byte.
	full := []byte{0xF0, 0x9F, 0x98, 0x80} // lead + 3 continuation bytes
	b.Write(full)
	b.Write([]byte{'X'}) // evicts the lead byte, used stays at capacity

	require.Equal(t, 4, b.Len())
	// offset 0 now lands on a continuation byte; boundary should skip
	// up to 3 of them.
	boundary := b.Utf8Boundary(0)
	assert.GreaterOrEqual(t, boundary, 1)
	assert.LessOrEqual(t, boundary, 3)
}

func TestUtf8BoundaryNoSkipOnLeadByte(t *testing.T) {
	b := New(8)
	b.Write([]byte("hello"))
	assert.Equal(t, 0, b.Utf8Boundary(0))
}

func TestClearWipesContents(t *testing.T) {
	b := New(8)
	b.Write([]byte("secret"))
	b.Clear()

	assert.True(t, b.Empty())
	assert.Equal(t, 0, b.Len())
	for _, bb := range b.buf {
		assert.Equal(t, byte(0), bb)
	}
}

func TestByteAtAfterWrap(t *testing.T) {
	b := New(4)
	b.Write([]byte("abcd"))
	b.Write([]byte("ef"))

	assert.Equal(t, byte('c'), b.ByteAt(0))
	assert.Equal(t, byte('d'), b.ByteAt(1))
	assert.Equal(t, byte('e'), b.ByteAt(2))
	assert.Equal(t, byte('f'), b.ByteAt(3))
}
