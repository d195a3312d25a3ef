package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotPutTake(t *testing.T) {
	s := NewSlot()
	require.Nil(t, s.Take())

	f := &Frame{CameraID: 1, ID: 42, Pix: []byte{1, 2, 3}}
	s.Put(f)

	got := s.Take()
	require.NotNil(t, got)
	require.Equal(t, uint64(42), got.ID)

	// Take removes the value — a second Take sees an empty slot.
	require.Nil(t, s.Take())
}

func TestSlotPeekCopyDoesNotRemove(t *testing.T) {
	s := NewSlot()
	f := &Frame{CameraID: 1, ID: 7, Pix: []byte{9, 9}}
	s.Put(f)

	cp := s.PeekCopy()
	require.NotNil(t, cp)
	require.Equal(t, f.ID, cp.ID)

	// Mutating the copy must never affect the original.
	cp.Pix[0] = 0xFF
	require.Equal(t, byte(9), f.Pix[0])

	// Value is still present after PeekCopy.
	require.NotNil(t, s.Take())
}

func TestSlotOverwrite(t *testing.T) {
	s := NewSlot()
	s.Put(&Frame{ID: 1})
	s.Put(&Frame{ID: 2})

	got := s.Take()
	require.Equal(t, uint64(2), got.ID)
}

func TestSlotReset(t *testing.T) {
	s := NewSlot()
	s.Put(&Frame{ID: 1})
	s.Reset()
	require.Nil(t, s.Take())
}
