// Package reactive is the observation substrate used by live trees.
//
// It offers three capabilities: making a container observable (an Atom per
// container), intercepting mutations of a container before they are applied
// (Interceptors), and running a function while collecting the atoms it read
// (Runtime.Track). Reactions created with Autorun re-run once per batch after
// any atom they read has changed.
//
// A Runtime is single threaded. Callers serialize access.
package reactive
