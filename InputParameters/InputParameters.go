package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type FMMParameters struct {
	Title        string    `yaml:"Title"`
	Kernel       string    `yaml:"Kernel"`
	KernelParams []float64 `yaml:"KernelParams"`
	InnerR       float64   `yaml:"InnerR"`
	OuterR       float64   `yaml:"OuterR"`
	Order        int       `yaml:"Order"`
	MAC          float64   `yaml:"MAC"`
	NPerLeaf     int       `yaml:"NPerLeaf"`
	NPoints      int       `yaml:"NPoints"`
	Seed         int64     `yaml:"Seed"`
}

func (fp *FMMParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, fp)
}

func (fp *FMMParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", fp.Title)
	fmt.Printf("[%s]\t\t\t= Kernel\n", fp.Kernel)
	fmt.Printf("%v\t\t= Kernel Params\n", fp.KernelParams)
	fmt.Printf("%8.5f\t\t= InnerR\n", fp.InnerR)
	fmt.Printf("%8.5f\t\t= OuterR\n", fp.OuterR)
	fmt.Printf("[%d]\t\t\t\t= Order\n", fp.Order)
	fmt.Printf("%8.5f\t\t= MAC\n", fp.MAC)
	fmt.Printf("[%d]\t\t\t\t= NPerLeaf\n", fp.NPerLeaf)
	fmt.Printf("[%d]\t\t\t= NPoints\n", fp.NPoints)
}
