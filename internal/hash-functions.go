package internal

// StringHash is DJBX33A over the bytes of s.
func StringHash(s string) (hash uint64) {
	hash = 5381
	for i := 0; i < len(s); i++ {
		hash = ((hash << 5) + hash) + uint64(s[i])
	}
	return
}

// ReadSeed derives the random seed for the read with the given
// global ordinal from the run seed. Equal inputs always give equal
// seeds, so a read sees the same random stream no matter which
// worker processes it.
func ReadSeed(seed, ordinal int64) int64 {
	// splitmix64 finalizer
	z := uint64(seed) + uint64(ordinal+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return int64(z ^ (z >> 31))
}
