package protocol

import "errors"

var (
	ErrKill           = errors.New("operation killed")
	ErrCCAFail        = errors.New("channel never cleared")
	ErrBadChannel     = errors.New("channel id does not resolve")
	ErrTimeout        = errors.New("operation timed out")
	ErrLink           = errors.New("link quality below threshold")
	ErrGeneric        = errors.New("radio error")
	ErrBusy           = errors.New("radio busy")
	ErrQueueFull      = errors.New("queue full")
	ErrQueueEmpty     = errors.New("queue empty")
	ErrInvalidPayload = errors.New("invalid payload size")
	ErrFrameLength    = errors.New("invalid frame length")
	ErrIntegrity      = errors.New("frame failed integrity check")
)

// ErrorCode is the negative value reported as arg1 of a completion callback.
type ErrorCode int32

const (
	ErrCodeKill       ErrorCode = -1
	ErrCodeCCAFail    ErrorCode = -2
	ErrCodeBadChannel ErrorCode = -3
	ErrCodeTimeout    ErrorCode = -4
	ErrCodeGeneric    ErrorCode = -5
	ErrCodeLink       ErrorCode = -6
)

var codeErrors = map[ErrorCode]error{
	ErrCodeKill:       ErrKill,
	ErrCodeCCAFail:    ErrCCAFail,
	ErrCodeBadChannel: ErrBadChannel,
	ErrCodeTimeout:    ErrTimeout,
	ErrCodeGeneric:    ErrGeneric,
	ErrCodeLink:       ErrLink,
}

// Err returns the sentinel error for c, or nil when c is not negative.
func (c ErrorCode) Err() error {
	if c >= 0 {
		return nil
	}
	if err, ok := codeErrors[c]; ok {
		return err
	}
	return ErrGeneric
}

// CodeOf maps err back to its callback code. Unknown errors map to ErrCodeGeneric.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return 0
	}
	for code, e := range codeErrors {
		if errors.Is(err, e) {
			return code
		}
	}
	return ErrCodeGeneric
}
