package sampler

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Drawer supplies the random values for one bucket.
type Drawer interface {
	// Count draws an occurrence count from Normal(mean, std), unrounded.
	Count(mean, std float64) float64
	// Second draws a second of the minute in [0, 59].
	Second() int
}

// DrawerFactory builds the Drawer for a bucket from its derived seed.
type DrawerFactory func(seed uint64) Drawer

// pcgStream is XORed into the seed to pick the second PCG word.
const pcgStream = 0x9e3779b97f4a7c15

type normalDrawer struct {
	rng *rand.Rand
	src rand.Source
}

// NewNormalDrawer returns the default Drawer: a PCG generator seeded with
// seed, gonum's Normal for counts and a uniform integer for seconds.
func NewNormalDrawer(seed uint64) Drawer {
	src := rand.NewPCG(seed, seed^pcgStream)
	return &normalDrawer{rng: rand.New(src), src: src}
}

func (d *normalDrawer) Count(mean, std float64) float64 {
	if std == 0 {
		return mean
	}
	return distuv.Normal{Mu: mean, Sigma: std, Src: d.src}.Rand()
}

func (d *normalDrawer) Second() int {
	return d.rng.IntN(60)
}
