package sliceops

// SwapBuf returns a reversed copy of in. The input is left untouched.
func SwapBuf(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[len(in)-1-i] = b
	}
	return out
}
