package classmap

// The six Flex messaging classes RocketAMF's class_mapping.c seeds by
// default (ext/class_mapping.c: ruby_classes/as_classes). Fields mirror the
// public property set of flex.messaging.messages.* as consumed by a
// generic remoting client; an application registering its own richer type
// for one of these names via Map overrides the seed.
type AbstractMessage struct {
	Body          any            `amf:"body"`
	ClientID      string         `amf:"clientId"`
	Destination   string         `amf:"destination"`
	Headers       map[string]any `amf:"headers"`
	MessageID     string         `amf:"messageId"`
	Timestamp     float64        `amf:"timestamp"`
	TimeToLive    float64        `amf:"timeToLive"`
}

type AsyncMessage struct {
	AbstractMessage
	CorrelationID string `amf:"correlationId"`
}

type CommandMessage struct {
	AsyncMessage
	Operation float64 `amf:"operation"`
}

type AcknowledgeMessage struct {
	AsyncMessage
}

type ErrorMessage struct {
	AsyncMessage
	FaultCode    string `amf:"faultCode"`
	FaultString  string `amf:"faultString"`
	FaultDetail  string `amf:"faultDetail"`
	RootCause    any    `amf:"rootCause"`
	ExtendedData map[string]any `amf:"extendedData"`
}

type RemotingMessage struct {
	AbstractMessage
	Operation string `amf:"operation"`
	Source    string `amf:"source"`
}

// seedPairs lists the default remote-name/local-type associations installed
// by NewMapper unless WithSeedMessages(false) is passed.
func seedPairs() []struct {
	remote string
	local  any
} {
	return []struct {
		remote string
		local  any
	}{
		{"flex.messaging.messages.AbstractMessage", AbstractMessage{}},
		{"flex.messaging.messages.RemotingMessage", RemotingMessage{}},
		{"flex.messaging.messages.AsyncMessage", AsyncMessage{}},
		{"flex.messaging.messages.CommandMessage", CommandMessage{}},
		{"flex.messaging.messages.AcknowledgeMessage", AcknowledgeMessage{}},
		{"flex.messaging.messages.ErrorMessage", ErrorMessage{}},
	}
}
