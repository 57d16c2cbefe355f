package sigiter

// ExpectedEnumerations sums Count(m, e, sigma) for e in [0, k], the
// total number of signatures a query would enumerate across the whole
// error sweep. Compared against SIG_LIMIT before a query begins.
func ExpectedEnumerations(m, k, sigma int) uint64 {
	var total uint64
	for e := 0; e <= k; e++ {
		c := Count(m, e, sigma)
		if total+c < total {
			return ^uint64(0) // overflow guard; any sane limit is already exceeded
		}
		total += c
	}
	return total
}
