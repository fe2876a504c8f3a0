// Package layout assigns base positions to the nodes of an outline forest.
//
// # Overview
//
// The engine is a layered (Sugiyama-style) pipeline specialised for trees:
//
//  1. Check: reject dangling parents and cycles before doing any work
//  2. Rank: place every node on the rank line of its tree depth
//  3. Order: arrange nodes within each rank to avoid edge crossings
//  4. Coordinates: pack subtrees along the cross axis with each parent
//     centred on its children, ranks separated by the rank spacing
//
// Stages run in order and each can be cancelled through the context; a
// deadline becomes a LAYOUT_TIMEOUT error so callers can keep their last
// good layout.
//
// # Directions
//
// [Direction] selects which screen axis the ranks advance along:
//
//	LR  roots on the left, children to the right
//	RL  roots on the right
//	TB  roots at the top
//	BT  roots at the bottom
//
// # Determinism
//
// For identical input the engine returns bit-identical positions. Input
// node order is irrelevant: siblings are ordered by insertion sequence,
// ties broken by id, and no map iteration order leaks into the result.
//
// # Incremental placement
//
// [Engine.Place] computes a provisional position for a single new node
// from the positions its neighbours currently occupy on screen, without
// touching any other node.
package layout
