package main

import (
	"fmt"

	"github.com/sanity-io/litter"

	"github.com/kevinxiao27/quill/doc"
)

// Demo: two replicas edit the same document offline, exchange their
// operations in opposite orders, and converge.
func main() {
	litter.Config.HidePrivateFields = false

	alice := doc.NewDocument("alice")
	bob := doc.NewDocument("bob")

	var aliceOps, bobOps []doc.Operation
	collect := func(ops *[]doc.Operation) func(doc.Operation, error) {
		return func(op doc.Operation, err error) {
			if err != nil {
				panic(err)
			}
			*ops = append(*ops, op)
		}
	}
	aliceEdit := collect(&aliceOps)
	bobEdit := collect(&bobOps)

	// Offline edits on both sides.
	aliceEdit(alice.InsertText("chapter-1", 0, "cat"))
	aliceEdit(alice.Increment("word-count", 5))
	aliceEdit(alice.AddElement("tags", "draft"))

	bobEdit(bob.InsertText("chapter-1", 0, "dog"))
	bobEdit(bob.Increment("word-count", 5))
	bobEdit(bob.SetEntry("meta", "title", "Untitled"))

	// Deliver in opposite orders; order must not matter.
	for _, op := range bobOps {
		if err := alice.ApplyRemote(op); err != nil {
			panic(err)
		}
	}
	for i := len(aliceOps) - 1; i >= 0; i-- {
		if err := bob.ApplyRemote(aliceOps[i]); err != nil {
			panic(err)
		}
	}

	aliceView := alice.View()
	bobView := bob.View()

	fmt.Printf("alice text: %q\n", aliceView.Texts["chapter-1"].Plain)
	fmt.Printf("bob text:   %q\n", bobView.Texts["chapter-1"].Plain)
	fmt.Printf("word count: alice=%d bob=%d\n",
		aliceView.Counters["word-count"], bobView.Counters["word-count"])

	if aliceView.Texts["chapter-1"].Plain == bobView.Texts["chapter-1"].Plain {
		fmt.Println("converged")
	} else {
		fmt.Println("diverged!")
	}

	litter.Dump(aliceView)
}
