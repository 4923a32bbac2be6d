package lending

// ApplyDelta returns available+delta clamped to [0, total].
func ApplyDelta(total, available, delta int) int {
	n := available + delta
	if n < 0 {
		return 0
	}
	if n > total {
		return total
	}
	return n
}

// AdjustTotal applies a catalog total-quantity edit: the same signed delta applied to
// total is applied to available, clamped. available is not re-derived from approvals,
// so callers must hold the item lock.
func AdjustTotal(total, available, newTotal int) (int, int) {
	if newTotal < 0 {
		newTotal = 0
	}
	return newTotal, ApplyDelta(newTotal, available, newTotal-total)
}
