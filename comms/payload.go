package comms

import (
	"github.com/CodedInternet/gowalker/onboard/errors"
)

// Reply to a tabular command.
type Response struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	SequenceID uint32 `json:"sequenceId,omitempty"`
}

// Typed messages share one envelope.
type TypedMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

type Event struct {
	Event      string `json:"event"`
	SequenceID uint32 `json:"sequenceId"`
}

// Busy and low battery are worth retrying or watching, everything else failed.
func level(code int) string {
	switch code {
	case errors.CodeBusy, errors.CodeLowBattery:
		return "warning"
	}
	return "error"
}

func NewErrorMessage(err error) TypedMessage {
	code := errors.Code(err)
	return TypedMessage{
		Type: "error",
		Data: ErrorData{
			Code:    code,
			Message: err.Error(),
			Level:   level(code),
		},
	}
}
