package amf

import "testing"

func TestEncodeDecodeU29_Boundary(t *testing.T) {
	values := []int32{MinI29, -1, 0, 127, 128, 16383, 16384, 2097151, 2097152, MaxI29}
	for _, v := range values {
		w := NewWriter()
		if err := w.EncodeU29(v); err != nil {
			t.Fatalf("EncodeU29(%d): %v", v, err)
		}
		r := NewReader(w.Bytes())
		got, err := r.DecodeU29()
		w.Release()
		if err != nil {
			t.Fatalf("DecodeU29 after encoding %d: %v", v, err)
		}
		if got != v {
			t.Errorf("round-trip %d: got %d", v, got)
		}
	}
}

func TestEncodeU29_OutOfRange(t *testing.T) {
	w := NewWriter()
	defer w.Release()
	if err := w.EncodeU29(MaxI29 + 1); err == nil {
		t.Fatal("expected ErrRangeError for MaxI29+1")
	}
	if err := w.EncodeU29(MinI29 - 1); err == nil {
		t.Fatal("expected ErrRangeError for MinI29-1")
	}
}

func TestWriteReadVarU29_RawUnsigned(t *testing.T) {
	// Header fields (lengths, back-reference indices) are raw unsigned
	// 29-bit quantities, not signed — ReadVarU29/WriteVarU29 never
	// sign-extend, unlike DecodeU29/EncodeU29.
	values := []uint32{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 0x1FFFFF, 0x200000, 0x1FFFFFFF}
	for _, v := range values {
		w := NewWriter()
		if err := w.WriteVarU29(v); err != nil {
			t.Fatalf("WriteVarU29(%#x): %v", v, err)
		}
		r := NewReader(w.Bytes())
		got, err := r.ReadVarU29()
		w.Release()
		if err != nil {
			t.Fatalf("ReadVarU29 after writing %#x: %v", v, err)
		}
		if got != v {
			t.Errorf("round-trip %#x: got %#x", v, got)
		}
	}
}
