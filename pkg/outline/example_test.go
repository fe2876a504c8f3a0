package outline_test

import (
	"fmt"

	"github.com/matzehuels/mindmap/pkg/outline"
)

func ExampleOutline_AddNode() {
	o := outline.New("Biology")
	root, _ := o.AddNode("", "Cells", "", outline.KindRegular)
	child, _ := o.AddNode(root, "Organelles", "", outline.KindRegular)

	n, _ := o.Node(child)
	fmt.Println(n.Title, n.Level)
	fmt.Println(len(o.Children(root)))
	// Output:
	// Organelles 1
	// 1
}

func ExampleOutline_DeleteNode() {
	o := outline.New("Biology")
	r, _ := o.AddNode("", "R", "", outline.KindRegular)
	a, _ := o.AddNode(r, "A", "", outline.KindRegular)
	a1, _ := o.AddNode(a, "A1", "", outline.KindRegular)

	_, _ = o.DeleteNode(a, outline.ReparentToGrandparent)
	n, _ := o.Node(a1)
	fmt.Println(n.ParentID == r, n.Level)
	// Output:
	// true 1
}
