package relay

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Client-visible protocol messages.
const (
	MsgTextOnly        = "can only accept text messages"
	MsgInvalidJSON     = "message must be valid JSON"
	MsgMissingType     = "message must include a type"
	MsgUnknownType     = "message type not recognized"
	MsgMissingFiles    = "files attribute not present"
	MsgMissingArgs     = "arguments attribute not present"
	MsgIOError         = "I/O error"
	MsgInvalidProtocol = "invalid protocol"
)

const RequestSubmit = "submit"

// EventType discriminates outbound frames.
type EventType string

const (
	EventError    EventType = "error"
	EventAccept   EventType = "accept"
	EventStdout   EventType = "stdout"
	EventStderr   EventType = "stderr"
	EventFinished EventType = "finished"
)

// Event is one outbound frame.
type Event struct {
	Type             EventType
	ID               string
	Data             string
	ErrorDescription string
	Failed           bool
	ExitCode         int
}

func ErrorEvent(description string) Event {
	return Event{Type: EventError, ErrorDescription: description}
}

func AcceptEvent(id string) Event {
	return Event{Type: EventAccept, ID: id}
}

func StdoutEvent(id string, data []byte) Event {
	return Event{Type: EventStdout, ID: id, Data: string(data)}
}

func StderrEvent(id string, data []byte) Event {
	return Event{Type: EventStderr, ID: id, Data: string(data)}
}

func FinishedEvent(id string, failed bool, exitCode int) Event {
	return Event{Type: EventFinished, ID: id, Failed: failed, ExitCode: exitCode}
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventError:
		return json.Marshal(struct {
			Type             EventType `json:"type"`
			ErrorDescription string    `json:"errorDescription"`
		}{e.Type, e.ErrorDescription})
	case EventAccept:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			ID   string    `json:"id"`
		}{e.Type, e.ID})
	case EventStdout, EventStderr:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			ID   string    `json:"id"`
			Data string    `json:"data"`
		}{e.Type, e.ID, e.Data})
	case EventFinished:
		return json.Marshal(struct {
			Type     EventType `json:"type"`
			ID       string    `json:"id"`
			Error    bool      `json:"error"`
			ExitCode int       `json:"exitCode"`
		}{e.Type, e.ID, e.Failed, e.ExitCode})
	default:
		return nil, errors.New("relay: unknown event type " + string(e.Type))
	}
}

// request is a decoded inbound frame. Absent attributes stay nil.
type request struct {
	Type      string
	Files     json.RawMessage
	Arguments json.RawMessage
}

// protocolError carries a client-visible message.
type protocolError string

func (e protocolError) Error() string {
	return string(e)
}

func decodeRequest(data []byte) (request, error) {
	if !json.Valid(data) {
		return request{}, protocolError(MsgInvalidJSON)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return request{}, protocolError(MsgMissingType)
	}

	var raw struct {
		Type      json.RawMessage `json:"type"`
		Files     json.RawMessage `json:"files"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return request{}, protocolError(MsgInvalidJSON)
	}
	if raw.Type == nil {
		return request{}, protocolError(MsgMissingType)
	}

	// null is present but names no type
	if string(raw.Type) == "null" {
		return request{}, protocolError(MsgUnknownType)
	}
	var typ string
	if err := json.Unmarshal(raw.Type, &typ); err != nil {
		return request{}, protocolError(MsgUnknownType)
	}
	return request{Type: typ, Files: raw.Files, Arguments: raw.Arguments}, nil
}
