package worker

import "errors"

var (
	// ErrNotIntercepted means the request is left to default network handling.
	ErrNotIntercepted = errors.New("request not intercepted")

	// ErrNoResponse means neither cache, network nor fallback produced a response.
	// The caller observes a network-level failure.
	ErrNoResponse = errors.New("no response available")

	// ErrInstallFailed means the shell precache did not complete.
	ErrInstallFailed = errors.New("install failed")

	// ErrNotInstalled is returned by Activate before a successful Install.
	ErrNotInstalled = errors.New("worker not installed")
)
