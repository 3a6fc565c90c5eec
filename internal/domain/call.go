package domain

import "errors"

var ErrUnknownCallType = errors.New("unknown call type")

// CallType selects which media the caller wants to negotiate.
type CallType string

const (
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

func ParseCallType(raw string) (CallType, error) {
	switch CallType(raw) {
	case CallAudio, CallVideo:
		return CallType(raw), nil
	}
	return "", ErrUnknownCallType
}

// Video reports whether a video track is part of the call.
func (t CallType) Video() bool { return t == CallVideo }
