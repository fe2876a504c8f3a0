package diagram_test

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mindmap/pkg/diagram"
	"github.com/matzehuels/mindmap/pkg/outline"
)

func ExampleDiagram_InsertFollowUp() {
	o := outline.New("Cells")
	_ = o.AddNodeWithID("cell", "", "Cell", "", outline.KindRegular)
	_ = o.AddNodeWithID("nucleus", "cell", "Nucleus", "", outline.KindRegular)

	ctx := context.Background()
	d, _ := diagram.Open(ctx, o, diagram.WithLogger(log.New(io.Discard)))

	// Drag the nucleus, then ask about it.
	d.Dispatch(ctx, diagram.BeginDrag{ID: "nucleus"})
	d.Dispatch(ctx, diagram.Drag{ID: "nucleus", DX: 20, DY: 10})
	d.Dispatch(ctx, diagram.EndDrag{ID: "nucleus"})
	res := d.Dispatch(ctx, diagram.InsertFollowUp{ParentID: "nucleus", Question: "What does it hold?"})

	st := d.RenderState()
	for _, id := range []string{"cell", "nucleus", res.ID} {
		n, _ := st.Node(id)
		fmt.Println(n.Title, n.Position, n.Kind)
	}
	// Output:
	// Cell {0 0} regular
	// Nucleus {370 10} regular
	// What does it hold? {720 10} qna
}
