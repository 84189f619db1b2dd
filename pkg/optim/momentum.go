package optim

import "github.com/Hirogava/tensorgrad/pkg/tensor"

// SGDWithMomentum is spec.md §4.5's momentum optimizer: each parameter
// keeps a running-mean buffer, grounded in the teacher's pkg/optimizers.
// Momentum (a map from the parameter to its velocity slice). On a
// parameter's first step the running mean equals the current gradient;
// thereafter m ← momentum·m + (1−momentum)·grad, and param ← param − lr·m.
type SGDWithMomentum struct {
	Base
	LR       float64
	Momentum float64

	running map[*tensor.Tensor][]float64
}

func NewSGDWithMomentum(lr, momentum float64, paramSets ...map[string]*tensor.Tensor) *SGDWithMomentum {
	return &SGDWithMomentum{
		Base:     NewBase(paramSets...),
		LR:       lr,
		Momentum: momentum,
		running:  make(map[*tensor.Tensor][]float64),
	}
}

func (s *SGDWithMomentum) Step() {
	for _, p := range s.Params {
		n := p.NumData()
		m, seen := s.running[p]
		if !seen {
			m = make([]float64, n)
			for i := 0; i < n; i++ {
				m[i] = p.GradAt(i)
			}
			s.running[p] = m
		} else {
			for i := 0; i < n; i++ {
				m[i] = s.Momentum*m[i] + (1-s.Momentum)*p.GradAt(i)
			}
		}
		for i := 0; i < n; i++ {
			p.SetDataRaw(i, p.DataAt(i)-s.LR*m[i])
		}
	}
}
