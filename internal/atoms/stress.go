package atoms

// VoigtFromFull converts a full 3x3 stress tensor to the 6-component Voigt
// vector (xx, yy, zz, yz, xz, xy). Off-diagonal components are symmetrised.
func VoigtFromFull(s [3][3]float64) [6]float64 {
	return [6]float64{
		s[0][0],
		s[1][1],
		s[2][2],
		(s[1][2] + s[2][1]) / 2,
		(s[0][2] + s[2][0]) / 2,
		(s[0][1] + s[1][0]) / 2,
	}
}

// FullFromVoigt converts a 6-component Voigt stress vector back to the full
// symmetric 3x3 tensor.
func FullFromVoigt(v [6]float64) [3][3]float64 {
	return [3][3]float64{
		{v[0], v[5], v[4]},
		{v[5], v[1], v[3]},
		{v[4], v[3], v[2]},
	}
}
