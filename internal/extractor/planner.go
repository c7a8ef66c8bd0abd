package extractor

import "math"

// Range is an inclusive block range.
type Range struct {
	From uint64
	To   uint64
}

// PlanRange computes the next range to process after lastProcessedBlock.
//
// The range starts at lastProcessedBlock+1 and ends at from+maxChunkSize,
// capped at currentBlock-minConfirmations so that blocks still exposed to
// reorgs are left for a later cycle. Both ends are inclusive, so a full
// window spans maxChunkSize+1 blocks: (1000, 500, 12, 300) plans [501, 801].
// ok is false when no confirmed block is left to process.
func PlanRange(currentBlock, lastProcessedBlock, minConfirmations, maxChunkSize uint64) (Range, bool) {
	if currentBlock < minConfirmations || lastProcessedBlock == math.MaxUint64 {
		return Range{}, false
	}
	maxBlock := currentBlock - minConfirmations
	from := lastProcessedBlock + 1

	to := from + maxChunkSize
	if to < from {
		to = math.MaxUint64
	}
	if to > maxBlock {
		to = maxBlock
	}
	if to < from {
		return Range{}, false
	}
	return Range{From: from, To: to}, true
}
