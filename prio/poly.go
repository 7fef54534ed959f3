package prio

// nextPowerOfTwo returns the smallest power of two >= v.
func nextPowerOfTwo(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

// rootsOfUnity returns the first count powers of the principal count-th
// root of unity, or of its inverse. count must be a power of two dividing
// 2^20.
func rootsOfUnity(count int, inverted bool) []FieldElement {
	w := FieldElement(generator).Pow(uint32(numRoots / count))
	if inverted {
		w = w.Inv()
	}
	roots := make([]FieldElement, count)
	r := FieldElement(1)
	for i := range roots {
		roots[i] = r
		r = r.Mul(w)
	}
	return roots
}

// fft computes the discrete Fourier transform of in over the given root
// powers: out[k] = sum_j in[j] * roots[k*j mod n]. Passing inverted roots
// computes the unscaled inverse transform. len(in) must be a power of two
// equal to len(roots).
func fft(in, roots []FieldElement) []FieldElement {
	n := len(in)
	if n == 1 {
		return []FieldElement{in[0]}
	}

	half := n / 2
	even := make([]FieldElement, half)
	odd := make([]FieldElement, half)
	for i := 0; i < half; i++ {
		even[i] = in[2*i]
		odd[i] = in[2*i+1]
	}

	// The half-size transform runs over the squared root, every second
	// entry of the current table.
	subRoots := make([]FieldElement, half)
	for i := range subRoots {
		subRoots[i] = roots[2*i]
	}
	evenOut := fft(even, subRoots)
	oddOut := fft(odd, subRoots)

	// Butterfly: roots[k+half] = -roots[k] for any primitive root table.
	out := make([]FieldElement, n)
	for k := 0; k < half; k++ {
		t := roots[k].Mul(oddOut[k])
		out[k] = evenOut[k].Add(t)
		out[k+half] = evenOut[k].Sub(t)
	}
	return out
}

// interpolate returns the coefficients of the polynomial of degree less
// than len(points) whose value at the i-th root of unity is points[i].
// invRoots must be the inverted table for len(points).
func interpolate(points, invRoots []FieldElement) []FieldElement {
	coeffs := fft(points, invRoots)
	nInv := Reduce(uint64(len(points))).Inv()
	for i := range coeffs {
		coeffs[i] = coeffs[i].Mul(nInv)
	}
	return coeffs
}

// evalPoly evaluates the polynomial with the given coefficients at x by
// Horner's rule.
func evalPoly(coeffs []FieldElement, x FieldElement) FieldElement {
	var acc FieldElement
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc = acc.Mul(x).Add(coeffs[i])
	}
	return acc
}

// interpolateEval interpolates points on the roots-of-unity domain and
// evaluates the resulting polynomial at r.
func interpolateEval(points, invRoots []FieldElement, r FieldElement) FieldElement {
	return evalPoly(interpolate(points, invRoots), r)
}
