// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim_test

import (
	"fmt"
	"strings"

	"github.com/born-ml/tomo/field"
	"github.com/born-ml/tomo/optim"
)

func ExampleNewSGD() {
	f, _ := field.Full(field.Shape{3}, 1, field.Bounds{Upper: 2, Reset: 1.5})
	optimizer, _ := optim.NewSGD(f, optim.SGDConfig{LR: 1})

	// 1-0.5 stays, 1-10 clamps to 0, 1+10 exceeds Upper and resets.
	_ = optimizer.Step([]float64{0.5, 10, -10})

	fmt.Println(f.Values(), optimizer.Iteration())
	// Output: [0.5 0 1.5] 1
}

func ExampleNew() {
	spec, _ := optim.ParseSpec(strings.NewReader(`
kind: momentum
momentum:
  lr: 1
  alpha: 0.5
`))

	f, _ := field.New(field.Shape{2}, []float64{5, 5}, []bool{true, false}, field.Bounds{Upper: 10, Reset: 1})
	optimizer, _ := optim.New(f, spec)

	_ = optimizer.Step([]float64{1, 1})
	_ = optimizer.Step([]float64{1, 1})

	fmt.Println(optimizer, f.Values())
	// Output: MSGD: alpha=5e-01 [3.75 5]
}
