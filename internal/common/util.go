package common

// WipeByteArray overwrites b with zeros so passwords do not linger in memory.
// A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
