package core

import (
	"fmt"
	"strings"
)

// MaxChannels is the largest number of spectral channels a color can carry
const MaxChannels = 24

// SpectralColor is an n-channel color value. Channels are not tied to any
// particular wavelength mapping; three channels are conventionally RGB.
// The zero value has no channels and behaves as black in sums.
type SpectralColor struct {
	n int
	c [MaxChannels]float64
}

// NewSpectralColor creates a color with one channel per value
func NewSpectralColor(values ...float64) SpectralColor {
	if len(values) > MaxChannels {
		panic(fmt.Sprintf("spectral color: %d channels exceeds maximum of %d", len(values), MaxChannels))
	}
	var s SpectralColor
	s.n = len(values)
	copy(s.c[:], values)
	return s
}

// NewRGB creates a three-channel color
func NewRGB(r, g, b float64) SpectralColor {
	return NewSpectralColor(r, g, b)
}

// NewGray creates an n-channel color with every channel set to v
func NewGray(n int, v float64) SpectralColor {
	if n < 0 || n > MaxChannels {
		panic(fmt.Sprintf("spectral color: invalid channel count %d", n))
	}
	s := SpectralColor{n: n}
	for i := 0; i < n; i++ {
		s.c[i] = v
	}
	return s
}

// Black returns an n-channel black color
func Black(n int) SpectralColor {
	return NewGray(n, 0)
}

// Channels returns the number of channels
func (s SpectralColor) Channels() int {
	return s.n
}

// Channel returns the value of channel i
func (s SpectralColor) Channel(i int) float64 {
	if i < 0 || i >= s.n {
		panic(fmt.Sprintf("spectral color: channel %d out of range [0,%d)", i, s.n))
	}
	return s.c[i]
}

// Values returns a copy of the channel values
func (s SpectralColor) Values() []float64 {
	out := make([]float64, s.n)
	copy(out, s.c[:s.n])
	return out
}

// match resolves the channel count for a binary operation. A channel-less
// color adopts the count of its operand.
func (s SpectralColor) match(other SpectralColor) int {
	switch {
	case s.n == other.n:
		return s.n
	case s.n == 0:
		return other.n
	case other.n == 0:
		return s.n
	}
	panic(fmt.Sprintf("spectral color: channel mismatch %d vs %d", s.n, other.n))
}

// Add returns the channel-wise sum of two colors
func (s SpectralColor) Add(other SpectralColor) SpectralColor {
	out := SpectralColor{n: s.match(other)}
	for i := 0; i < out.n; i++ {
		out.c[i] = s.c[i] + other.c[i]
	}
	return out
}

// Scale returns the color multiplied by a scalar
func (s SpectralColor) Scale(f float64) SpectralColor {
	out := SpectralColor{n: s.n}
	for i := 0; i < s.n; i++ {
		out.c[i] = s.c[i] * f
	}
	return out
}

// Multiply returns the channel-wise product of two colors
func (s SpectralColor) Multiply(other SpectralColor) SpectralColor {
	out := SpectralColor{n: s.match(other)}
	if s.n == 0 || other.n == 0 {
		return out
	}
	for i := 0; i < out.n; i++ {
		out.c[i] = s.c[i] * other.c[i]
	}
	return out
}

// Brightness returns the mean of the channels
func (s SpectralColor) Brightness() float64 {
	if s.n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < s.n; i++ {
		sum += s.c[i]
	}
	return sum / float64(s.n)
}

// Max returns the largest channel value
func (s SpectralColor) Max() float64 {
	m := 0.0
	for i := 0; i < s.n; i++ {
		if s.c[i] > m {
			m = s.c[i]
		}
	}
	return m
}

// IsBlack reports whether every channel is at or below eps
func (s SpectralColor) IsBlack(eps float64) bool {
	for i := 0; i < s.n; i++ {
		if s.c[i] > eps {
			return false
		}
	}
	return true
}

// Equals reports whether both colors have the same channels within eps
func (s SpectralColor) Equals(other SpectralColor, eps float64) bool {
	if s.n != other.n {
		return false
	}
	for i := 0; i < s.n; i++ {
		d := s.c[i] - other.c[i]
		if d > eps || d < -eps {
			return false
		}
	}
	return true
}

// RGB reduces the color to three bands by averaging channel groups.
// A single channel is gray; no channels is black.
func (s SpectralColor) RGB() (r, g, b float64) {
	switch s.n {
	case 0:
		return 0, 0, 0
	case 1:
		return s.c[0], s.c[0], s.c[0]
	case 3:
		return s.c[0], s.c[1], s.c[2]
	}
	var sums [3]float64
	var counts [3]int
	for i := 0; i < s.n; i++ {
		band := i * 3 / s.n
		sums[band] += s.c[i]
		counts[band]++
	}
	for i := range sums {
		if counts[i] > 0 {
			sums[i] /= float64(counts[i])
		}
	}
	return sums[0], sums[1], sums[2]
}

// FromRGB expands three bands to an n-channel color, giving every channel
// the value of its band. It is the inverse of RGB for uniform bands.
func FromRGB(n int, r, g, b float64) SpectralColor {
	switch n {
	case 1:
		return NewSpectralColor((r + g + b) / 3)
	case 3:
		return NewRGB(r, g, b)
	}
	bands := [3]float64{r, g, b}
	out := Black(n)
	for i := 0; i < n; i++ {
		out.c[i] = bands[i*3/n]
	}
	return out
}

// String formats the channels for logging
func (s SpectralColor) String() string {
	parts := make([]string, s.n)
	for i := 0; i < s.n; i++ {
		parts[i] = fmt.Sprintf("%.6g", s.c[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
