package envelope

import "github.com/flexamf/amf/pkg/amf"

// abstractMessageClassName is the Flex remoting base class whose presence
// as a message's sole body element triggers the single-element unwrap
// convention (spec §4.7).
const abstractMessageClassName = "flex.messaging.messages.AbstractMessage"

// Message is one entry of an envelope's message list: a target/response
// URI pair (the RTMP-era "NetConnection" addressing convention this wire
// format inherited) and a body encoded in the envelope's amf_version.
type Message struct {
	TargetURI   string
	ResponseURI string
	Body        amf.Value
}

// unwrapFlexRemoting applies spec §4.7's Flex remoting convention: if body
// is a single-element sequence whose only element is an
// AbstractMessage-descended object, the message's body becomes that inner
// element directly instead of the wrapping one-element array.
func unwrapFlexRemoting(body amf.Value) amf.Value {
	if body.Kind != amf.KindArray || len(body.Array) != 1 {
		return body
	}
	inner := body.Array[0]
	if inner.Kind != amf.KindObject || inner.Obj == nil {
		return body
	}
	if !isAbstractMessageDescended(inner.Obj.ClassName) {
		return body
	}
	return inner
}

// isAbstractMessageDescended reports whether className is
// flex.messaging.messages.AbstractMessage or one of its seeded
// descendants (classmap.seedPairs' six Flex messaging classes all
// ultimately derive from it).
func isAbstractMessageDescended(className string) bool {
	switch className {
	case abstractMessageClassName,
		"flex.messaging.messages.AsyncMessage",
		"flex.messaging.messages.CommandMessage",
		"flex.messaging.messages.AcknowledgeMessage",
		"flex.messaging.messages.ErrorMessage",
		"flex.messaging.messages.RemotingMessage":
		return true
	default:
		return false
	}
}
