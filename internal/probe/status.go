package probe

import "fmt"

// Status is a monitoring plugin state. Its value is the process exit code.
type Status int

const (
	StatusOK Status = iota
	// StatusWarning is part of the plugin convention but never produced by
	// this probe.
	StatusWarning
	StatusCritical
	StatusUnknown
)

// String returns the label printed in front of the status message
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode returns the process exit code for s
func (s Status) ExitCode() int {
	if s < StatusOK || s > StatusUnknown {
		return int(StatusUnknown)
	}
	return int(s)
}

// Result is the terminal outcome of a probe run
type Result struct {
	Status  Status
	Message string
	// Err is the fault behind a non-OK result, nil on success
	Err error
}

// String renders the one-line plugin output, e.g.
// "CRITICAL - cannot connect to keystone server ctl1 on port 5000"
func (r Result) String() string {
	return fmt.Sprintf("%s - %s", r.Status, r.Message)
}

func success() Result {
	return Result{Status: StatusOK, Message: "Keystone API successfully tested."}
}

func unreachable(host, port string, err error) Result {
	return Result{
		Status:  StatusCritical,
		Message: fmt.Sprintf("cannot connect to keystone server %s on port %s", host, port),
		Err:     fmt.Errorf("%w: %w", ErrUnreachable, err),
	}
}

func authRejected(host string, err error) Result {
	return Result{
		Status:  StatusCritical,
		Message: fmt.Sprintf("Failed to get token from Keystone server: %s", host),
		Err:     err,
	}
}

func badCACert(path string) Result {
	return Result{
		Status:  StatusUnknown,
		Message: fmt.Sprintf("No such CA Cert: %s", path),
		Err:     fmt.Errorf("%w: %s", ErrBadCACert, path),
	}
}

// Unexpected reports a fault that maps to no specific status
func Unexpected(err error) Result {
	return Result{
		Status:  StatusUnknown,
		Message: fmt.Sprintf("Unexpected error while testing Keystone API: %v", err),
		Err:     err,
	}
}
