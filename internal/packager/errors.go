package packager

import "fmt"

// PackagingFailure is an error raised before any byte reached the client,
// so the caller can still answer with an error response.
type PackagingFailure struct {
	Stage State
	Err   error
}

func (e *PackagingFailure) Error() string {
	return fmt.Sprintf("packaging failed while %s: %v", e.Stage, e.Err)
}

func (e *PackagingFailure) Unwrap() error {
	return e.Err
}

// DeliveryFailure is an error raised after the response started streaming.
type DeliveryFailure struct {
	Written int64
	Err     error
}

func (e *DeliveryFailure) Error() string {
	return fmt.Sprintf("delivery failed after %d bytes: %v", e.Written, e.Err)
}

func (e *DeliveryFailure) Unwrap() error {
	return e.Err
}
