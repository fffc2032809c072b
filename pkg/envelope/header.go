package envelope

import "github.com/flexamf/amf/pkg/amf"

// Header is a single out-of-band envelope header: a name, a
// must-understand flag telling the recipient whether it may ignore an
// unrecognized header, and an AMF0 body (spec §4.7: headers are "always
// AMF0" regardless of the envelope's amf_version).
type Header struct {
	Name           string
	MustUnderstand bool
	Body           amf.Value
}
