package job

import "fmt"

// BrokenStateError reports a workdir whose on-disk contents contradict
// themselves (spec §7 "BrokenState"): result.json without kwargs.json, or
// result.json missing after a job that was supposed to have completed.
type BrokenStateError struct {
	Locator string
	Reason  string
}

func (e *BrokenStateError) Error() string {
	return fmt.Sprintf("broken state at %s: %s", e.Locator, e.Reason)
}

// InputsChangedError reports kwargs.json or kwargs.sha256 disagreeing with a
// fresh computation (spec §7 "InputsChanged"). A diagnostic companion file
// (kwargs-new.json or kwargs-new.sha256) has already been written alongside
// the original by the time this is returned.
type InputsChangedError struct {
	Locator   string
	Companion string
}

func (e *InputsChangedError) Error() string {
	return fmt.Sprintf(
		"existing kwargs in %s inconsistent with new kwargs/hashes; wrote %s for comparison",
		e.Locator, e.Companion,
	)
}

// ScriptFailureError reports a job script exiting nonzero (spec §7
// "ScriptFailure"). Stderr is captured from the script's .err file.
type ScriptFailureError struct {
	Locator string
	Script  string
	Stderr  string
	Err     error
}

func (e *ScriptFailureError) Error() string {
	return fmt.Sprintf("script %s failed at %s: %v", e.Script, e.Locator, e.Err)
}

func (e *ScriptFailureError) Unwrap() error { return e.Err }
