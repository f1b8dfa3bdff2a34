/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/notargets/gofmm/InputParameters"
	"github.com/notargets/gofmm/fmm"
	"github.com/notargets/gofmm/kdtree"
	"github.com/notargets/gofmm/kernels"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

// AccuracyCmd represents the accuracy command
var AccuracyCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Compare the FMM operator against brute-force direct evaluation",
	Long: `
Builds an FMM operator over a random spherical point cloud and reports the
relative error of the accelerated matrix-vector product against the dense
O(N^2) ground truth,

gofmm accuracy -n 10000 -o 8`,
	Run: func(cmd *cobra.Command, args []string) {
		fp := &InputParameters.FMMParameters{
			Title:    "accuracy check",
			Kernel:   "invr",
			InnerR:   1.1,
			OuterR:   2.9,
			NPerLeaf: 50,
		}
		if inputFile, _ := cmd.Flags().GetString("input"); inputFile != "" {
			data, err := os.ReadFile(inputFile)
			if err != nil {
				fmt.Printf("unable to read input file %s: %v\n", inputFile, err)
				os.Exit(1)
			}
			if err = fp.Parse(data); err != nil {
				fmt.Printf("unable to parse input file %s: %v\n", inputFile, err)
				os.Exit(1)
			}
		}
		if n, _ := cmd.Flags().GetInt("npoints"); n != 0 {
			fp.NPoints = n
		}
		if o, _ := cmd.Flags().GetInt("order"); o != 0 {
			fp.Order = o
		}
		if fp.NPoints == 0 {
			fp.NPoints = 2000
		}
		if fp.Order == 0 {
			fp.Order = 6
		}
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start(profile.CPUProfile).Stop()
		}
		fp.Print()
		RunAccuracy(fp)
	},
}

func init() {
	rootCmd.AddCommand(AccuracyCmd)
	AccuracyCmd.Flags().StringP("input", "i", "", "YAML input parameter file")
	AccuracyCmd.Flags().IntP("npoints", "n", 0, "number of random surface points")
	AccuracyCmd.Flags().IntP("order", "o", 0, "expansion order - higher is more accurate and slower")
	AccuracyCmd.Flags().Bool("profile", false, "write a CPU profile for the run")
}

func RunAccuracy(fp *InputParameters.FMMParameters) {
	k, err := kernels.GetByName(fp.Kernel)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	pts, ns := spherePoints(fp.NPoints, fp.Seed)

	start := time.Now()
	tree, err := kdtree.New(pts, ns, fp.NPerLeaf)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Printf("tree build: %v, %d nodes, max height %d\n",
		time.Since(start), len(tree.Nodes), tree.MaxHeight)

	start = time.Now()
	op, err := fmm.Assemble(tree, tree, fmm.Config{
		InnerR: fp.InnerR,
		OuterR: fp.OuterR,
		Order:  fp.Order,
		MAC:    fp.MAC,
		Kernel: k,
		Params: fp.KernelParams,
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Printf("assembly: %v, %d near pairs, %d surface points\n",
		time.Since(start), op.NNearPairs(), op.NSurf())

	v := make([]float64, fp.NPoints*k.TensorDim)
	for i := range v {
		v[i] = 1.
	}
	start = time.Now()
	approx, err := op.Eval(v)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Printf("fmm eval: %v\n", time.Since(start))

	start = time.Now()
	dense, err := kernels.Direct(k, tree.Pts, tree.Normals, tree.Pts, tree.Normals, fp.KernelParams)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	exact := make([]float64, len(approx))
	dense.MulVec(v, exact)
	fmt.Printf("direct eval: %v\n", time.Since(start))

	var num, den float64
	for i := range exact {
		d := approx[i] - exact[i]
		num += d * d
		den += exact[i] * exact[i]
	}
	fmt.Printf("relative error = %12.6g\n", math.Sqrt(num/den))
}

// spherePoints draws n points uniformly on the unit sphere with outward
// normals, deterministically for a given seed.
func spherePoints(n int, seed int64) (pts, ns []float64) {
	rng := rand.New(rand.NewSource(seed + 1))
	pts = make([]float64, 3*n)
	ns = make([]float64, 3*n)
	for i := 0; i < n; i++ {
		z := 2.*rng.Float64() - 1.
		th := 2. * math.Pi * rng.Float64()
		r := math.Sqrt(1. - z*z)
		pts[3*i] = r * math.Cos(th)
		pts[3*i+1] = r * math.Sin(th)
		pts[3*i+2] = z
		copy(ns[3*i:3*i+3], pts[3*i:3*i+3])
	}
	return
}
