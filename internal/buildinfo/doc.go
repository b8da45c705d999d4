// Package buildinfo writes the static SolutionInfo files that local builds of the
// synchronized repositories expect to find in the workspace.
package buildinfo
