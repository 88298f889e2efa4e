package wire

// PropertySerializer writes MQTT 5.0 properties into a caller-owned buffer.
// It exists alongside EncodePropertiesToBytes for callers that want to hold
// onto the destination buffer across multiple Serialize calls.
type PropertySerializer struct {
	buf []byte
}

// NewPropertySerializer wraps buf for property serialization.
func NewPropertySerializer(buf []byte) *PropertySerializer {
	return &PropertySerializer{buf: buf}
}

// Serialize encodes props into the wrapped buffer and returns bytes written.
func (s *PropertySerializer) Serialize(props *Properties) (int, error) {
	return props.EncodePropertiesToBytes(s.buf)
}

// Buffer returns the underlying buffer passed to NewPropertySerializer.
func (s *PropertySerializer) Buffer() []byte {
	return s.buf
}

// CalculatePropertiesSize returns the total encoded size of props, including
// the leading Variable Byte Integer length prefix.
func CalculatePropertiesSize(props *Properties) int {
	length := props.wireLength()
	return SizeVariableByteInteger(length) + int(length)
}

// ValidateProperty checks that id is a known property and that value holds
// the Go type its PropertyType requires.
func ValidateProperty(id PropertyID, value interface{}) error {
	rule, ok := propertyTable[id]
	if !ok {
		return ErrInvalidPropertyID
	}

	switch rule.kind {
	case PropertyTypeByte:
		if _, ok := value.(byte); !ok {
			return ErrInvalidPropertyType
		}
	case PropertyTypeTwoByteInt:
		if _, ok := value.(uint16); !ok {
			return ErrInvalidPropertyType
		}
	case PropertyTypeFourByteInt:
		if _, ok := value.(uint32); !ok {
			return ErrInvalidPropertyType
		}
	case PropertyTypeVarInt:
		v, ok := value.(uint32)
		if !ok {
			return ErrInvalidPropertyType
		}
		if v > MaxVariableByteInteger {
			return ErrPropertyTooLarge
		}
	case PropertyTypeUTF8String:
		if _, ok := value.(string); !ok {
			return ErrInvalidPropertyType
		}
	case PropertyTypeUTF8Pair:
		if _, ok := value.(UTF8Pair); !ok {
			return ErrInvalidPropertyType
		}
	case PropertyTypeBinaryData:
		if _, ok := value.([]byte); !ok {
			return ErrInvalidPropertyType
		}
	default:
		return ErrInvalidPropertyType
	}

	return nil
}

// PropertyBuilder assembles a Properties set through chained With* calls,
// validating each value as it is added and latching the first error so a
// long chain can be built without checking after every step.
type PropertyBuilder struct {
	props *Properties
	err   error
}

// NewPropertyBuilder returns an empty PropertyBuilder.
func NewPropertyBuilder() *PropertyBuilder {
	return &PropertyBuilder{props: &Properties{}}
}

func (b *PropertyBuilder) with(id PropertyID, value interface{}) *PropertyBuilder {
	if b.err != nil {
		return b
	}
	if err := ValidateProperty(id, value); err != nil {
		b.err = err
		return b
	}
	b.err = b.props.AddProperty(id, value)
	return b
}

func (b *PropertyBuilder) WithPayloadFormat(v byte) *PropertyBuilder {
	return b.with(PropPayloadFormatIndicator, v)
}

func (b *PropertyBuilder) WithMessageExpiry(v uint32) *PropertyBuilder {
	return b.with(PropMessageExpiryInterval, v)
}

func (b *PropertyBuilder) WithContentType(v string) *PropertyBuilder {
	return b.with(PropContentType, v)
}

func (b *PropertyBuilder) WithResponseTopic(v string) *PropertyBuilder {
	return b.with(PropResponseTopic, v)
}

func (b *PropertyBuilder) WithCorrelationData(v []byte) *PropertyBuilder {
	return b.with(PropCorrelationData, v)
}

func (b *PropertyBuilder) WithSubscriptionIdentifier(v uint32) *PropertyBuilder {
	return b.with(PropSubscriptionIdentifier, v)
}

func (b *PropertyBuilder) WithSessionExpiry(v uint32) *PropertyBuilder {
	return b.with(PropSessionExpiryInterval, v)
}

func (b *PropertyBuilder) WithAssignedClientID(v string) *PropertyBuilder {
	return b.with(PropAssignedClientIdentifier, v)
}

func (b *PropertyBuilder) WithServerKeepAlive(v uint16) *PropertyBuilder {
	return b.with(PropServerKeepAlive, v)
}

func (b *PropertyBuilder) WithAuthenticationMethod(v string) *PropertyBuilder {
	return b.with(PropAuthenticationMethod, v)
}

func (b *PropertyBuilder) WithAuthenticationData(v []byte) *PropertyBuilder {
	return b.with(PropAuthenticationData, v)
}

func (b *PropertyBuilder) WithRequestProblemInfo(v byte) *PropertyBuilder {
	return b.with(PropRequestProblemInformation, v)
}

func (b *PropertyBuilder) WithWillDelay(v uint32) *PropertyBuilder {
	return b.with(PropWillDelayInterval, v)
}

func (b *PropertyBuilder) WithRequestResponseInfo(v byte) *PropertyBuilder {
	return b.with(PropRequestResponseInformation, v)
}

func (b *PropertyBuilder) WithResponseInfo(v string) *PropertyBuilder {
	return b.with(PropResponseInformation, v)
}

func (b *PropertyBuilder) WithServerReference(v string) *PropertyBuilder {
	return b.with(PropServerReference, v)
}

func (b *PropertyBuilder) WithReasonString(v string) *PropertyBuilder {
	return b.with(PropReasonString, v)
}

func (b *PropertyBuilder) WithReceiveMaximum(v uint16) *PropertyBuilder {
	return b.with(PropReceiveMaximum, v)
}

func (b *PropertyBuilder) WithTopicAliasMaximum(v uint16) *PropertyBuilder {
	return b.with(PropTopicAliasMaximum, v)
}

func (b *PropertyBuilder) WithTopicAlias(v uint16) *PropertyBuilder {
	return b.with(PropTopicAlias, v)
}

func (b *PropertyBuilder) WithMaximumQoS(v byte) *PropertyBuilder {
	return b.with(PropMaximumQoS, v)
}

func (b *PropertyBuilder) WithRetainAvailable(v byte) *PropertyBuilder {
	return b.with(PropRetainAvailable, v)
}

func (b *PropertyBuilder) WithUserProperty(key, value string) *PropertyBuilder {
	return b.with(PropUserProperty, UTF8Pair{Key: key, Value: value})
}

func (b *PropertyBuilder) WithMaximumPacketSize(v uint32) *PropertyBuilder {
	return b.with(PropMaximumPacketSize, v)
}

func (b *PropertyBuilder) WithWildcardSubscriptionAvailable(v byte) *PropertyBuilder {
	return b.with(PropWildcardSubscriptionAvailable, v)
}

func (b *PropertyBuilder) WithSubscriptionIdentifierAvailable(v byte) *PropertyBuilder {
	return b.with(PropSubscriptionIdentifierAvailable, v)
}

func (b *PropertyBuilder) WithSharedSubscriptionAvailable(v byte) *PropertyBuilder {
	return b.with(PropSharedSubscriptionAvailable, v)
}

// Build returns the assembled Properties, or the first error encountered
// while adding a property.
func (b *PropertyBuilder) Build() (*Properties, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.props, nil
}
