package learning

// ComputeProgress derives a completion percentage from the current item total
// and the number of those items consumed. An empty course is 0, never 100.
func ComputeProgress(total, consumed int) int {
	if total <= 0 {
		return 0
	}
	if consumed < 0 {
		consumed = 0
	}
	if consumed > total {
		consumed = total
	}
	return (100 * consumed) / total
}
