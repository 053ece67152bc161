// Package tui provides the interactive refinement screen used by
// "taskgenie generate --interactive".
//
// The screen lists the current child drafts for a work item. The user types
// an instruction ("merge 2 and 3", "add a task for load testing") and presses
// Enter; the drafts are regenerated in refinement mode and redrawn. ctrl+s
// accepts the current list, esc cancels.
//
// Usage:
//
//	model := tui.NewRefineModel(ctx, item, drafts, refine)
//	drafts, accepted, err := tui.RunRefine(model)
package tui
