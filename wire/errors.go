package wire

import "errors"

// Variable Byte Integer errors.
var (
	ErrVariableByteIntegerTooLarge  = errors.New("variable byte integer value exceeds maximum (268,435,455)")
	ErrMalformedVariableByteInteger = errors.New("malformed variable byte integer")
	ErrUnexpectedEOF                = errors.New("unexpected end of input")
	ErrBufferTooSmall               = errors.New("buffer too small")
)

// Fixed header errors.
var (
	ErrInvalidType         = errors.New("invalid packet type")
	ErrInvalidFlags        = errors.New("invalid flags for packet type")
	ErrInvalidQoS          = errors.New("invalid QoS level")
	ErrInvalidReservedType = errors.New("reserved packet type (0) not allowed")
)

// Property codec errors.
var (
	ErrInvalidPropertyID   = errors.New("invalid property ID")
	ErrInvalidPropertyType = errors.New("invalid property type")
	ErrDuplicateProperty   = errors.New("duplicate property not allowed")
)

// UTF-8 string validation errors.
var (
	ErrInvalidUTF8           = errors.New("invalid UTF-8 encoding")
	ErrNullCharacter         = errors.New("null character (U+0000) not allowed in UTF-8 string")
	ErrInvalidCodePoint      = errors.New("invalid Unicode code point")
	ErrSurrogateCodePoint    = errors.New("UTF-16 surrogate code points (U+D800 to U+DFFF) not allowed")
	ErrNonCharacterCodePoint = errors.New("non-character code points (U+FFFE, U+FFFF) not allowed")
	ErrControlCharacter      = errors.New("control characters (U+0001 to U+001F, U+007F to U+009F) should be avoided")
)

// Packet semantics errors.
var (
	ErrInvalidProtocolName      = errors.New("invalid protocol name")
	ErrInvalidProtocolVersion   = errors.New("invalid protocol version")
	ErrInvalidPacketID          = errors.New("invalid packet identifier")
	ErrMalformedPacket          = errors.New("malformed packet")
	ErrInvalidConnectFlags      = errors.New("invalid CONNECT flags: reserved bit must be 0")
	ErrInvalidWillQoS           = errors.New("invalid Will QoS level")
	ErrWillFlagMismatch         = errors.New("Will flag inconsistent with Will QoS or Will Retain")
	ErrMissingPacketID          = errors.New("missing packet identifier for QoS > 0")
	ErrInvalidPacketIDZero      = errors.New("packet identifier cannot be 0 for QoS > 0")
	ErrInvalidRemainingLength   = errors.New("remaining length exceeds maximum or packet bounds")
	ErrInvalidTopicName         = errors.New("invalid topic name")
	ErrInvalidTopicFilter       = errors.New("invalid topic filter")
	ErrEmptyTopicFilter         = errors.New("empty topic filter not allowed")
	ErrInvalidSubscriptionOpts  = errors.New("invalid subscription options")
	ErrEmptySubscriptionList    = errors.New("SUBSCRIBE packet must contain at least one subscription")
	ErrEmptyUnsubscribeList     = errors.New("UNSUBSCRIBE packet must contain at least one topic filter")
	ErrInvalidPropertyLength    = errors.New("invalid property length")
	ErrPropertyTooLarge         = errors.New("property value exceeds maximum size")
	ErrInvalidReasonCode        = errors.New("invalid reason code for packet type")
	ErrPayloadTooLarge          = errors.New("payload exceeds maximum size")
	ErrInvalidPublishTopicName  = errors.New("PUBLISH topic name cannot contain wildcards")
	ErrUsernameWithoutFlag      = errors.New("username present but username flag not set")
	ErrPasswordWithoutFlag      = errors.New("password present but password flag not set")
	ErrPasswordWithoutUsername  = errors.New("password flag set without username flag")
	ErrWillPropsWithoutWillFlag = errors.New("will properties present but will flag not set")
	ErrDupWithQoS0              = errors.New("DUP flag set on a QoS 0 PUBLISH")
	ErrTopicAliasOutOfRange     = errors.New("topic alias is 0 or exceeds the advertised maximum")
)

// PacketError pairs a parse/validation error with the MQTT 5.0 reason
// code a server should report it as, plus optional free-text context.
type PacketError struct {
	Err        error
	ReasonCode ReasonCode
	Message    string
}

func (e *PacketError) Error() string {
	if e.Message != "" {
		return e.Err.Error() + ": " + e.Message
	}
	return e.Err.Error()
}

func (e *PacketError) Unwrap() error {
	return e.Err
}

func NewMalformedPacketError(err error, message string) *PacketError {
	return &PacketError{Err: err, ReasonCode: ReasonMalformedPacket, Message: message}
}

func NewProtocolError(err error, message string) *PacketError {
	return &PacketError{Err: err, ReasonCode: ReasonProtocolError, Message: message}
}

// reasonCodeFor lists, in order, the sentinel errors GetReasonCode
// recognizes and the reason code each maps to. A table instead of a
// type switch so adding a new mapping is a one-line entry rather than
// a new case clause, and so the fallback (ReasonUnspecifiedError) is
// the single obvious default rather than buried under several cases.
var reasonCodeFor = []struct {
	err  error
	code ReasonCode
}{
	{ErrMalformedPacket, ReasonMalformedPacket},
	{ErrMalformedVariableByteInteger, ReasonMalformedPacket},
	{ErrInvalidConnectFlags, ReasonMalformedPacket},
	{ErrInvalidWillQoS, ReasonMalformedPacket},
	{ErrInvalidQoS, ReasonMalformedPacket},
	{ErrInvalidRemainingLength, ReasonMalformedPacket},

	{ErrInvalidType, ReasonProtocolError},
	{ErrInvalidFlags, ReasonProtocolError},
	{ErrInvalidReservedType, ReasonProtocolError},
	{ErrWillFlagMismatch, ReasonProtocolError},
	{ErrInvalidPacketID, ReasonProtocolError},
	{ErrInvalidPacketIDZero, ReasonProtocolError},
	{ErrMissingPacketID, ReasonProtocolError},
	{ErrEmptySubscriptionList, ReasonProtocolError},
	{ErrEmptyUnsubscribeList, ReasonProtocolError},
	{ErrDupWithQoS0, ReasonProtocolError},
	{ErrTopicAliasOutOfRange, ReasonProtocolError},

	{ErrInvalidProtocolVersion, ReasonUnsupportedProtocolVersion},

	{ErrInvalidTopicFilter, ReasonTopicFilterInvalid},
	{ErrEmptyTopicFilter, ReasonTopicFilterInvalid},

	{ErrInvalidTopicName, ReasonTopicNameInvalid},
	{ErrInvalidPublishTopicName, ReasonTopicNameInvalid},

	{ErrPayloadTooLarge, ReasonPacketTooLarge},
}

// GetReasonCode derives the MQTT 5.0 reason code a server should close
// the connection or fail the packet with for err. A *PacketError
// carries its own reason code explicitly; anything else is looked up
// against the known sentinel errors, falling back to
// ReasonUnspecifiedError.
func GetReasonCode(err error) ReasonCode {
	var pktErr *PacketError
	if errors.As(err, &pktErr) {
		return pktErr.ReasonCode
	}
	for _, entry := range reasonCodeFor {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ReasonUnspecifiedError
}
