package fmm

import (
	"fmt"

	"github.com/notargets/gofmm/kernels"
)

/*
Config fixes the geometry and accuracy of the multipole approximation.

The equivalent surface of a node with bounding radius r is the unit
translation surface scaled by InnerR*r, the check surface by OuterR*r.
InnerR must exceed 1 so the equivalent surface encloses the node's points,
and OuterR must exceed InnerR so the check-to-equivalent solve is posed on
two separated surfaces.

A node pair is admitted to the far field when

	sep > MAC * (OuterR*rBig + InnerR*rSmall)

where sep is the distance between the bounding-ball centers. At MAC = 1 the
check surface of the larger node cannot reach the equivalent surface of the
smaller, so the expansion is never used where it could be singular; larger
values trade speed for additional separation margin.
*/
type Config struct {
	InnerR float64
	OuterR float64
	Order  int
	MAC    float64 // acceptance threshold scale, default 1.0
	SVDTol float64 // relative truncation for the c2e pseudo-inverse, default 1e-12
	Kernel kernels.Kernel
	Params []float64
}

const (
	DefaultMAC    = 1.0
	DefaultSVDTol = 1e-12
)

func (cfg *Config) Validate() error {
	if cfg.MAC == 0 {
		cfg.MAC = DefaultMAC
	}
	if cfg.SVDTol == 0 {
		cfg.SVDTol = DefaultSVDTol
	}
	if cfg.InnerR <= 1 {
		return fmt.Errorf("InnerR must exceed 1 so the equivalent surface encloses the node, got %v", cfg.InnerR)
	}
	if cfg.OuterR <= cfg.InnerR {
		return fmt.Errorf("OuterR must exceed InnerR: inner = %v, outer = %v", cfg.InnerR, cfg.OuterR)
	}
	if cfg.Order < 1 {
		return fmt.Errorf("expansion order must be at least 1, got %d", cfg.Order)
	}
	if cfg.MAC < 0 {
		return fmt.Errorf("MAC must be positive, got %v", cfg.MAC)
	}
	if cfg.Kernel.F == nil {
		return fmt.Errorf("config requires a kernel")
	}
	if len(cfg.Params) < cfg.Kernel.NParams {
		return fmt.Errorf("kernel %s requires %d parameters, got %d",
			cfg.Kernel.Name, cfg.Kernel.NParams, len(cfg.Params))
	}
	return nil
}

func (cfg Config) TensorDim() int { return cfg.Kernel.TensorDim }
