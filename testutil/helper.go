/*
Copyright © 2025 Loadkit authors.

Released under MIT license.
*/

package testutil

type tHelper interface {
	Helper()
}
