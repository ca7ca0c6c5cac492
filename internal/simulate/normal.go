package simulate

import (
	"math"
	"math/rand/v2"
)

// normalSource draws normal variates from a seeded PCG stream using the
// cosine branch of the Box-Muller transform. One variate consumes exactly two
// 64-bit draws, which keeps the stream layout fixed across Go releases.
type normalSource struct {
	src rand.Source
}

func newNormalSource(seed int64) *normalSource {
	s := uint64(seed)
	return &normalSource{src: rand.NewPCG(s, s)}
}

// uniform returns a value in [0, 1) built from the top 53 bits of a draw.
func (n *normalSource) uniform() float64 {
	return float64(n.src.Uint64()>>11) * 0x1p-53
}

// standard returns a N(0, 1) variate.
func (n *normalSource) standard() float64 {
	u1 := 1 - n.uniform() // (0, 1], keeps Log finite
	u2 := n.uniform()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// normal returns a N(mean, sd) variate.
func (n *normalSource) normal(mean, sd float64) float64 {
	return mean + sd*n.standard()
}
