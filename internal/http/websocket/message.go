package websocket

import (
	"fmt"

	"github.com/google/uuid"
)

type (
	socketMessageType int

	// ArgumentType is the kind of value a command argument must hold.
	ArgumentType string
)

const (
	Update socketMessageType = iota
	Command
	Response
	ErrorResponse
	Welcome
)

const (
	StringArgument ArgumentType = "string"
	NumberArgument ArgumentType = "number"
	UUIDArgument   ArgumentType = "uuid"
)

// SocketMessage is a message sent to, or received from, a client. Commands
// received from a client carry an Id, which replies echo so the client can
// correlate them. Origin is the client the message was received from, and
// Target (if set) restricts delivery to a single client.
type SocketMessage struct {
	Title  string                 `json:"title"`
	Body   map[string]interface{} `json:"arguments"`
	Id     int                    `json:"id"`
	Type   socketMessageType      `json:"type"`
	Origin *uuid.UUID             `json:"-"`
	Target *uuid.UUID             `json:"-"`

	countReply chan int
}

// ValidateArguments ensures that every key in 'required' is present in the
// body of the message, holding a value of the matching type. JSON numbers
// are decoded as float64, and UUIDs are expected as strings.
func (message *SocketMessage) ValidateArguments(required map[string]ArgumentType) error {
	for key, kind := range required {
		value, ok := message.Body[key]
		if !ok {
			return fmt.Errorf("failed to validate key '%v' - key is missing", key)
		}

		valid := false
		switch kind {
		case NumberArgument:
			_, valid = value.(float64)
		case StringArgument:
			str, isString := value.(string)
			valid = isString && str != ""
		case UUIDArgument:
			if str, isString := value.(string); isString {
				_, err := uuid.Parse(str)
				valid = err == nil
			}
		default:
			return fmt.Errorf("failed to validate key '%v' - unknown type '%v'", key, kind)
		}

		if !valid {
			return fmt.Errorf("failed to validate key '%v' with type '%v' - %#v", key, kind, value)
		}
	}

	return nil
}

// FormReply returns a NEW message addressed to the origin of this message,
// carrying the same Id, with the title, body and type provided. The body
// of this message is attached to the reply under 'command'.
func (message *SocketMessage) FormReply(replyTitle string, replyBody map[string]interface{}, replyType socketMessageType) *SocketMessage {
	if replyBody == nil {
		replyBody = make(map[string]interface{})
	}
	replyBody["command"] = message.Body

	return &SocketMessage{
		Title:  replyTitle,
		Body:   replyBody,
		Type:   replyType,
		Id:     message.Id,
		Target: message.Origin,
	}
}
