// Package artifacts resolves uploaded inputs and enhancement outputs on
// the filesystem.
//
// The Locator is the only component that knows where artifacts live.
// Outputs are matched against a fixed extension priority (.png, .jpg,
// .jpeg); absence is the normal in-flight state, surfaced as ErrNotFound
// rather than a failure.
package artifacts
