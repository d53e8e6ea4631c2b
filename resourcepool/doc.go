/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

// Package resourcepool provides a bounded pool of interchangeable resource handles
// (e.g., connections to a scarce downstream system). All handles are created at pool
// initialization; acquisition blocks (up to an optional timeout) until a handle is
// free, and a released handle wakes one waiter. A handle is owned by exactly one
// acquirer between Acquire and Release.
package resourcepool
