package encoder

import (
	"testing"

	"github.com/sugarme/tokenizer"
)

func TestPadBatch(t *testing.T) {
	encodings := []*tokenizer.Encoding{
		{
			Ids:           []int{101, 2023, 102},
			AttentionMask: []int{1, 1, 1},
			TypeIds:       []int{0, 0, 0},
		},
		{
			Ids:           []int{101, 102},
			AttentionMask: []int{1, 1},
			TypeIds:       []int{0, 0},
		},
	}

	b := padBatch(encodings)

	if b.batch != 2 {
		t.Fatalf("batch = %d, want 2", b.batch)
	}
	if b.seqLen != 3 {
		t.Fatalf("seqLen = %d, want 3", b.seqLen)
	}

	wantIDs := []int64{101, 2023, 102, 101, 102, 0}
	for i := range wantIDs {
		if b.ids[i] != wantIDs[i] {
			t.Errorf("ids[%d] = %d, want %d", i, b.ids[i], wantIDs[i])
		}
	}

	wantMask := []int64{1, 1, 1, 1, 1, 0}
	for i := range wantMask {
		if b.mask[i] != wantMask[i] {
			t.Errorf("mask[%d] = %d, want %d", i, b.mask[i], wantMask[i])
		}
	}

	// The float mask rows mirror the integer mask, padding marked 0.
	if len(b.maskRows) != 2 {
		t.Fatalf("maskRows rows = %d, want 2", len(b.maskRows))
	}
	if b.maskRows[1][2] != 0 {
		t.Errorf("maskRows[1][2] = %v, want 0 (padding)", b.maskRows[1][2])
	}
	if b.maskRows[1][1] != 1 {
		t.Errorf("maskRows[1][1] = %v, want 1", b.maskRows[1][1])
	}
}

func TestPadBatch_Empty(t *testing.T) {
	b := padBatch([]*tokenizer.Encoding{{}})
	if b.seqLen != 1 {
		t.Errorf("seqLen = %d, want 1 (minimum)", b.seqLen)
	}
	if b.maskRows[0][0] != 0 {
		t.Errorf("maskRows[0][0] = %v, want 0", b.maskRows[0][0])
	}
}
