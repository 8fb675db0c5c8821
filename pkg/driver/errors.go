package driver

import "fmt"

// ProvisioningError reports a failure to start a browser session: missing
// playwright runtime, unsupported browser kind, or a launch failure.
type ProvisioningError struct {
	Browser string // configured browser kind, empty for install failures
	Stage   string // install, config, runtime, launch
	Err     error
}

func (e *ProvisioningError) Error() string {
	if e.Browser == "" {
		return fmt.Sprintf("provisioning failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("provisioning %s failed at %s: %v", e.Browser, e.Stage, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }
