package amf

// Source is the byte-source contract a Deserializer reads from (spec §6):
// a bounds-checked cursor exposing its position and the full backing
// slice. *Reader satisfies this directly; callers wrapping a seekable
// stream must buffer a complete frame first (spec §5: "the codec is
// synchronous with respect to its byte stream").
type Source interface {
	Pos() int
	SetPos(pos int)
	Bytes() []byte
	Len() int
}

var _ Source = (*Reader)(nil)

// AMFEncoder lets a user type contribute a custom encoder: when a native
// value passed to Serializer.ToValue implements it, the serializer calls
// EncodeAMF instead of the default dispatch (spec §4.8:
// "expose an encode_amf(serializer) capability").
type AMFEncoder interface {
	EncodeAMF(s *Serializer) (Value, error)
}

// AMFExternalizable lets a registered type own its AMF3 externalizable
// wire body directly, bypassing the sealed/dynamic member protocol (spec
// §4.6: "delegate to an external_reader/external_writer capability").
type AMFExternalizable interface {
	WriteExternal(w *Writer) error
	ReadExternal(r *Reader) error
}

// ArrayCollectionHint lets a slice or array type override the Mapper-wide
// UseArrayCollection default for its own values; it is consulted only when
// such a value is converted by Serializer.ToValue.
type ArrayCollectionHint interface {
	UseArrayCollection() bool
}
