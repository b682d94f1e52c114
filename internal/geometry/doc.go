// Package geometry plans the crop and target dimensions that let the RGB
// and depth streams share an exact aspect ratio while satisfying the depth
// model's spatial divisibility constraint.
//
// Rounding decisions made here are the single largest source of downstream
// verification failures, so the planner logs its full derivation and refuses
// infeasible geometry instead of clamping.
package geometry
