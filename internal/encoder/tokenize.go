package encoder

import "github.com/sugarme/tokenizer"

// tokenizedBatch holds padded integer model inputs for one batch, flattened
// row-major as batch x seqLen.
type tokenizedBatch struct {
	ids     []int64
	mask    []int64
	typeIDs []int64
	// maskRows is the per-row float mask handed back alongside the token
	// vectors so pooling can exclude padding.
	maskRows [][]float32
	batch    int
	seqLen   int
}

// padBatch right-pads variable-length encodings to the longest sequence in
// the batch. Padding positions get token id 0, type id 0 and mask 0.
func padBatch(encodings []*tokenizer.Encoding) *tokenizedBatch {
	seqLen := 0
	for _, en := range encodings {
		if len(en.Ids) > seqLen {
			seqLen = len(en.Ids)
		}
	}
	if seqLen == 0 {
		seqLen = 1
	}

	b := &tokenizedBatch{
		ids:      make([]int64, len(encodings)*seqLen),
		mask:     make([]int64, len(encodings)*seqLen),
		typeIDs:  make([]int64, len(encodings)*seqLen),
		maskRows: make([][]float32, len(encodings)),
		batch:    len(encodings),
		seqLen:   seqLen,
	}

	for i, en := range encodings {
		row := make([]float32, seqLen)
		base := i * seqLen
		for j, id := range en.Ids {
			b.ids[base+j] = int64(id)
		}
		for j, m := range en.AttentionMask {
			b.mask[base+j] = int64(m)
			row[j] = float32(m)
		}
		for j, t := range en.TypeIds {
			b.typeIDs[base+j] = int64(t)
		}
		b.maskRows[i] = row
	}

	return b
}
