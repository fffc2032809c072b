package amf

// AMF0 marker bytes (spec §4.5).
const (
	markerNumber      = 0x00
	markerBoolean     = 0x01
	markerString      = 0x02
	markerObject      = 0x03
	markerMovieClip   = 0x04 // reserved, never produced or accepted
	markerNull        = 0x05
	markerUndefined   = 0x06
	markerReference   = 0x07
	markerECMAArray   = 0x08
	markerObjectEnd   = 0x09
	markerStrictArray = 0x0A
	markerDate        = 0x0B
	markerLongString  = 0x0C
	markerUnsupported = 0x0D
	markerRecordSet   = 0x0E // reserved, never produced or accepted
	markerXMLDocument = 0x0F
	markerTypedObject = 0x10
	markerAVMPlus     = 0x11 // switches the remainder of the stream to AMF3
)

// AMF3 marker bytes (spec §4.6).
const (
	amf3Undefined = 0x00
	amf3Null      = 0x01
	amf3False     = 0x02
	amf3True      = 0x03
	amf3Integer   = 0x04
	amf3Double    = 0x05
	amf3String    = 0x06
	amf3XMLDoc    = 0x07
	amf3Date      = 0x08
	amf3Array     = 0x09
	amf3Object    = 0x0A
	amf3XML       = 0x0B
	amf3ByteArray = 0x0C
	amf3Dict      = 0x11
)

// maxPreallocEntries bounds array/property preallocation during decode to
// guard against malicious length fields (spec §4.5/§6).
const maxPreallocEntries = 100000

// arrayCollectionClassName is the Flex wrapper class that unwraps to its
// inner array on decode (spec §4.6/GLOSSARY).
const arrayCollectionClassName = "flex.messaging.io.ArrayCollection"
