package bitvec

import "testing"

func TestZeroOneOnes(t *testing.T) {
	if !Zero(8).IsZero() {
		t.Error("Zero(8) should be zero")
	}
	if !Ones(8).IsOnes() {
		t.Error("Ones(8) should be all-ones")
	}
	one := One(8)
	if one.Bit(0) != 1 {
		t.Error("One(8) bit 0 should be 1")
	}
	for i := uint32(1); i < 8; i++ {
		if one.Bit(i) != 0 {
			t.Errorf("One(8) bit %d should be 0", i)
		}
	}
}

func TestNotIsComplement(t *testing.T) {
	v := FromUint64(8, 0x3C)
	nv := v.Not()
	if nv.Uint64() != 0xC3 {
		t.Errorf("Not(0x3C) = %#x, want 0xC3", nv.Uint64())
	}
	if !Equal(nv.Not(), v) {
		t.Error("double complement should equal original")
	}
}

func TestSetBitRoundtrip(t *testing.T) {
	v := Zero(16)
	v.SetBit(9, 1)
	if v.Bit(9) != 1 {
		t.Error("bit 9 should read back as 1")
	}
	v.SetBit(9, 0)
	if !v.IsZero() {
		t.Error("clearing bit 9 should restore zero")
	}
}

func TestCompare(t *testing.T) {
	a := FromUint64(16, 5)
	b := FromUint64(16, 7)
	if Compare(a, b) >= 0 {
		t.Error("5 should compare less than 7")
	}
	if Compare(a, a) != 0 {
		t.Error("value should compare equal to itself")
	}
}

func TestHashStableUnderCopy(t *testing.T) {
	v := FromUint64(32, 0xDEADBEEF)
	if v.Hash() != v.Copy().Hash() {
		t.Error("hash should be stable across Copy")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	v := New(16, []byte{0x12, 0x34})
	if v.Uint64() != 0x1234 {
		t.Errorf("New from BE bytes = %#x, want 0x1234", v.Uint64())
	}
	b := v.Bytes()
	if len(b) != 2 || b[0] != 0x12 || b[1] != 0x34 {
		t.Errorf("Bytes() = %x, want 1234", b)
	}
}

func TestWidthWiderThanOneWord(t *testing.T) {
	v := Zero(128)
	v.SetBit(127, 1)
	if v.Bit(127) != 1 {
		t.Error("high bit of a 128-bit value should be settable")
	}
	if v.Bit(0) != 0 {
		t.Error("unrelated bit should remain 0")
	}
}
