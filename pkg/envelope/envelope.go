// Package envelope implements the AMF envelope wire format that binds a
// header list and a message list into a single framed payload (spec §4.7):
// the NetConnection-era request/response shape AMF0/AMF3 bodies travel in
// over HTTP or a persistent socket.
package envelope

import (
	"fmt"

	"github.com/flexamf/amf/pkg/amf"
)

// bodyLengthSentinel is always emitted in the body-length field; spec
// §4.7 says it is ignored on decode, so no real length is ever computed.
const bodyLengthSentinel = 0xFFFFFFFF

// Envelope binds a header list and an ordered message list sharing one
// amf_version (spec §4.7).
type Envelope struct {
	AMFVersion uint16
	Headers    []Header
	Messages   []Message
}

// New returns an empty Envelope using AMF0 bodies.
func New() *Envelope {
	return &Envelope{AMFVersion: 0}
}

// HeaderByName returns the first header named name, for callers that treat
// Headers as the "mapping name -> Header" spec §4.7 describes.
func (e *Envelope) HeaderByName(name string) (Header, bool) {
	for _, h := range e.Headers {
		if h.Name == name {
			return h, true
		}
	}
	return Header{}, false
}

// PopulateFromStream decodes an envelope from source, replacing e's
// current contents. Message and header bodies decode to amf.Value trees;
// a caller wanting a native Go instance for a typed message body passes it
// through amf.Deserializer.MaterializeObject with its own classmap.Mapper.
func (e *Envelope) PopulateFromStream(source amf.Source) error {
	r := asReader(source)

	version, err := r.ReadU16BE()
	if err != nil {
		return fmt.Errorf("envelope: amf_version: %w", err)
	}
	if version != 0 && version != 3 {
		return fmt.Errorf("envelope: amf_version %d: %w", version, amf.ErrArgError)
	}

	headerCount, err := r.ReadU16BE()
	if err != nil {
		return fmt.Errorf("envelope: header_count: %w", err)
	}
	headers := make([]Header, 0, headerCount)
	for i := uint16(0); i < headerCount; i++ {
		h, err := decodeHeader(r)
		if err != nil {
			return fmt.Errorf("envelope: header %d: %w", i, err)
		}
		headers = append(headers, h)
	}

	messageCount, err := r.ReadU16BE()
	if err != nil {
		return fmt.Errorf("envelope: message_count: %w", err)
	}
	messages := make([]Message, 0, messageCount)
	for i := uint16(0); i < messageCount; i++ {
		m, err := decodeMessage(r, version)
		if err != nil {
			return fmt.Errorf("envelope: message %d: %w", i, err)
		}
		messages = append(messages, m)
	}

	e.AMFVersion = version
	e.Headers = headers
	e.Messages = messages
	if source != r {
		source.SetPos(r.Pos())
	}
	return nil
}

// Serialize encodes e.
func (e *Envelope) Serialize() ([]byte, error) {
	w := amf.NewWriter()
	defer w.Release()

	if err := w.WriteU16BE(e.AMFVersion); err != nil {
		return nil, err
	}
	if err := w.WriteU16BE(uint16(len(e.Headers))); err != nil {
		return nil, err
	}
	for i, h := range e.Headers {
		if err := encodeHeader(w, h); err != nil {
			return nil, fmt.Errorf("envelope: header %d: %w", i, err)
		}
	}
	if err := w.WriteU16BE(uint16(len(e.Messages))); err != nil {
		return nil, err
	}
	for i, m := range e.Messages {
		if err := encodeMessage(w, m, e.AMFVersion); err != nil {
			return nil, fmt.Errorf("envelope: message %d: %w", i, err)
		}
	}

	out := make([]byte, len(w.Bytes()))
	copy(out, w.Bytes())
	return out, nil
}

func decodeHeader(r *amf.Reader) (Header, error) {
	name, err := readU16String(r)
	if err != nil {
		return Header{}, err
	}
	mu, err := r.ReadU8()
	if err != nil {
		return Header{}, err
	}
	if _, err := r.ReadU32BE(); err != nil { // body_length, ignored
		return Header{}, err
	}
	body, err := amf.DecodeAMF0(r)
	if err != nil {
		return Header{}, err
	}
	return Header{Name: name, MustUnderstand: mu != 0, Body: body}, nil
}

func encodeHeader(w *amf.Writer, h Header) error {
	if err := writeU16String(w, h.Name); err != nil {
		return err
	}
	mu := byte(0)
	if h.MustUnderstand {
		mu = 1
	}
	if err := w.WriteU8(mu); err != nil {
		return err
	}
	if err := w.WriteU32BE(bodyLengthSentinel); err != nil {
		return err
	}
	return amf.EncodeAMF0(w, h.Body)
}

func decodeMessage(r *amf.Reader, version uint16) (Message, error) {
	target, err := readU16String(r)
	if err != nil {
		return Message{}, err
	}
	response, err := readU16String(r)
	if err != nil {
		return Message{}, err
	}
	if _, err := r.ReadU32BE(); err != nil { // body_length, ignored
		return Message{}, err
	}
	body, err := decodeBody(r, version)
	if err != nil {
		return Message{}, err
	}
	return Message{TargetURI: target, ResponseURI: response, Body: unwrapFlexRemoting(body)}, nil
}

func encodeMessage(w *amf.Writer, m Message, version uint16) error {
	if err := writeU16String(w, m.TargetURI); err != nil {
		return err
	}
	if err := writeU16String(w, m.ResponseURI); err != nil {
		return err
	}
	if err := w.WriteU32BE(bodyLengthSentinel); err != nil {
		return err
	}
	return encodeBody(w, m.Body, version)
}

// amf3SwitchMarker is the AMF0 AVM+ object marker (spec §4.5/§4.7): an
// AMF3 message body is still framed behind this single byte even though
// the envelope's amf_version already says 3.
const amf3SwitchMarker = 0x11

func decodeBody(r *amf.Reader, version uint16) (amf.Value, error) {
	if version == 3 {
		marker, err := r.ReadU8()
		if err != nil {
			return amf.Value{}, err
		}
		if marker != amf3SwitchMarker {
			return amf.Value{}, fmt.Errorf("envelope: amf3 message missing switch marker: %w", amf.ErrBadMarker)
		}
		return amf.DecodeAMF3(r)
	}
	return amf.DecodeAMF0(r)
}

func encodeBody(w *amf.Writer, v amf.Value, version uint16) error {
	if version == 3 {
		if err := w.WriteU8(amf3SwitchMarker); err != nil {
			return err
		}
		return amf.EncodeAMF3(w, v)
	}
	return amf.EncodeAMF0(w, v)
}

func readU16String(r *amf.Reader) (string, error) {
	n, err := r.ReadU16BE()
	if err != nil {
		return "", err
	}
	return r.ReadUTF8(int(n))
}

func writeU16String(w *amf.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("envelope: string length %d: %w", len(s), amf.ErrRangeError)
	}
	if err := w.WriteU16BE(uint16(len(s))); err != nil {
		return err
	}
	return w.WriteUTF8(s)
}

func asReader(source amf.Source) *amf.Reader {
	if r, ok := source.(*amf.Reader); ok {
		return r
	}
	r := amf.NewReader(source.Bytes())
	r.SetPos(source.Pos())
	return r
}
