package layout_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/mindmap/pkg/layout"
)

func ExampleEngine_Compute() {
	in := layout.Input{Nodes: []layout.Node{
		{ID: "R", Seq: 1},
		{ID: "C1", Parent: "R", Seq: 2},
		{ID: "C2", Parent: "R", Seq: 3},
	}}
	res, err := layout.New(layout.Config{Direction: layout.LeftToRight}).Compute(context.Background(), in)
	if err != nil {
		panic(err)
	}
	for _, id := range []string{"R", "C1", "C2"} {
		p := res.Positions[id]
		fmt.Printf("%s (%g, %g)\n", id, p.X, p.Y)
	}
	// Output:
	// R (0, 60)
	// C1 (350, 0)
	// C2 (350, 120)
}
