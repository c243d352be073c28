package errors

import (
	"errors"
	"fmt"
	"github.com/go-gl/mathgl/mgl64"
)

// Protocol level error codes reported back to the client that issued a command.
const (
	CodeLowBattery      = 1001
	CodeMalformed       = 3002
	CodeInvalidValue    = 3003
	CodeQueueFull       = 4001
	CodeBusy            = 4002
	CodeUnsupported     = 4003
	CodeNotCalibrating  = 5001
	CodeCalibrationIO   = 5002
	CodeInternalFailure = 5000
)

var (
	ErrQueueFull          = errors.New("queue full")
	ErrBusy               = errors.New("system busy, command ignored")
	ErrGaitChangeRejected = errors.New("gait family can only change in stable standby")
	ErrNotCalibrating     = errors.New("not in calibration mode")
	ErrNoCalibration      = errors.New("no stored calibration")
	ErrUnsupported        = errors.New("not supported by this deployment")
	ErrLowBattery         = errors.New("Battery voltage too low")
	ErrCalibrationIO      = errors.New("calibration storage failed")
)

// InvalidInputError is returned for anything a client sent that can not be acted on.
// Locomotion state is never changed when one of these is returned.
type InvalidInputError struct {
	Code    int
	Message string
}

func (err InvalidInputError) Error() string {
	return err.Message
}

func Invalid(format string, args ...interface{}) InvalidInputError {
	return InvalidInputError{
		Code:    CodeInvalidValue,
		Message: fmt.Sprintf(format, args...),
	}
}

func Malformed(format string, args ...interface{}) InvalidInputError {
	return InvalidInputError{
		Code:    CodeMalformed,
		Message: fmt.Sprintf(format, args...),
	}
}

type UnreachableError struct {
	Target mgl64.Vec3
}

func (err UnreachableError) Error() string {
	return fmt.Sprintf("kinematic target unreachable (%.2f, %.2f, %.2f)", err.Target.X(), err.Target.Y(), err.Target.Z())
}

type LegIndexError struct {
	Leg   int
	Joint int
}

func (err LegIndexError) Error() string {
	if err.Joint < 0 {
		return fmt.Sprintf("no such leg %d", err.Leg)
	}
	return fmt.Sprintf("no such joint %d on leg %d", err.Joint, err.Leg)
}

// Code resolves the protocol error code for any error produced by the core.
func Code(err error) int {
	var invalid InvalidInputError
	var index LegIndexError
	switch {
	case errors.As(err, &invalid):
		return invalid.Code
	case errors.As(err, &index):
		return CodeInvalidValue
	case errors.Is(err, ErrQueueFull):
		return CodeQueueFull
	case errors.Is(err, ErrBusy):
		return CodeBusy
	case errors.Is(err, ErrGaitChangeRejected), errors.Is(err, ErrUnsupported):
		return CodeUnsupported
	case errors.Is(err, ErrNotCalibrating):
		return CodeNotCalibrating
	case errors.Is(err, ErrNoCalibration), errors.Is(err, ErrCalibrationIO):
		return CodeCalibrationIO
	case errors.Is(err, ErrLowBattery):
		return CodeLowBattery
	}
	return CodeInternalFailure
}
