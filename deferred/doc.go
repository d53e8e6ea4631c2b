/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

// Package deferred provides execution of long-running side-effecting work off the
// request path. Work is submitted to a fixed-size worker pool through a bounded
// queue; submission never blocks and returns a task handle that can be polled or
// awaited for the outcome.
//
// A task goes through the states Pending -> Running -> {Succeeded, Failed};
// transitions are one-directional. A task failure is recorded on the handle and is
// never propagated back to the submitting call path, while executor-level failures
// (e.g., a full queue) are reported synchronously by Submit. The executor does not
// retry tasks on its own: a retry policy, if any, is supplied by the submitter.
package deferred
