package wire

import "strings"

// Fixed bit positions within the CONNECT flags byte (MQTT v3.1.1 §3.1.2.3,
// v5.0 §3.1.2.3).
const (
	connectFlagReserved = 0x01
	connectFlagWill     = 0x04
	connectFlagWillQoS  = 0x18
	connectFlagWillRet  = 0x20
	connectFlagPassword = 0x40
	connectFlagUsername = 0x80

	connectFlagWillQoSShift = 3
)

// Bit layout of a subscription options byte (MQTT v5.0 §3.8.3.1). v3.1.1
// subscriptions only ever carry the QoS bits; the rest are always zero.
const (
	subOptQoSMask       = 0x03
	subOptRetainHandle  = 0x30
	subOptReservedBits  = 0xC0
	maxRetainHandling   = 2
	maxRemainingLength  = 268435455 // 0xFF 0xFF 0xFF 0x7F decoded
)

// ValidatePacketID rejects packet ID 0 on packet types that require a
// nonzero identifier (PUBLISH QoS>0, SUBSCRIBE, UNSUBSCRIBE, and their acks).
func ValidatePacketID(packetID uint16, requireNonZero bool) error {
	if requireNonZero && packetID == 0 {
		return ErrInvalidPacketIDZero
	}
	return nil
}

// ValidateTopicName rejects anything illegal in a PUBLISH topic name: empty,
// wildcard characters, or a string that fails the MQTT UTF-8 rules.
func ValidateTopicName(topic string) error {
	if topic == "" {
		return ErrInvalidTopicName
	}
	if strings.ContainsAny(topic, "+#") {
		return ErrInvalidPublishTopicName
	}
	if err := ValidateUTF8String([]byte(topic)); err != nil {
		return ErrInvalidTopicName
	}
	return nil
}

// ValidateTopicFilter checks a SUBSCRIBE/UNSUBSCRIBE filter level by level:
// '#' only as the final, standalone level, '+' only as a standalone level.
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return ErrEmptyTopicFilter
	}

	levels := strings.Split(filter, "/")
	last := len(levels) - 1
	for i, level := range levels {
		switch {
		case strings.Contains(level, "#") && (level != "#" || i != last):
			return ErrInvalidTopicFilter
		case strings.Contains(level, "+") && level != "+":
			return ErrInvalidTopicFilter
		}
		if err := ValidateUTF8String([]byte(level)); err != nil {
			return ErrInvalidTopicFilter
		}
	}
	return nil
}

// ValidateConnectFlags enforces the CONNECT flags byte invariants: the
// reserved bit is zero, Will QoS is a real QoS value, a clear Will flag
// forces Will QoS/Retain to zero, and Password requires Username.
func ValidateConnectFlags(flags byte) error {
	if flags&connectFlagReserved != 0 {
		return ErrInvalidConnectFlags
	}

	will := flags&connectFlagWill != 0
	willQoS := QoS((flags & connectFlagWillQoS) >> connectFlagWillQoSShift)
	willRetain := flags&connectFlagWillRet != 0

	if !willQoS.IsValid() {
		return ErrInvalidWillQoS
	}
	if !will && (willQoS != QoS0 || willRetain) {
		return ErrWillFlagMismatch
	}
	if flags&connectFlagPassword != 0 && flags&connectFlagUsername == 0 {
		return ErrPasswordWithoutUsername
	}
	return nil
}

// ValidateSubscriptionOptions enforces the subscription options byte:
// valid QoS, Retain Handling in {0,1,2}, reserved bits 6-7 clear.
func ValidateSubscriptionOptions(options byte) error {
	if !QoS(options & subOptQoSMask).IsValid() {
		return ErrInvalidSubscriptionOpts
	}
	if (options&subOptRetainHandle)>>4 > maxRetainHandling {
		return ErrInvalidSubscriptionOpts
	}
	if options&subOptReservedBits != 0 {
		return ErrInvalidSubscriptionOpts
	}
	return nil
}

// ValidatePublishPacket checks the cross-field PUBLISH invariants that
// don't fit inside a single getter: topic legality, QoS range, and the
// packet-ID-required-for-QoS>0 rule.
func ValidatePublishPacket(topicName string, qos QoS, packetID uint16) error {
	if err := ValidateTopicName(topicName); err != nil {
		return err
	}
	if !qos.IsValid() {
		return ErrInvalidQoS
	}
	if qos > QoS0 {
		return ValidatePacketID(packetID, true)
	}
	return nil
}

// ValidateRemainingLength bounds a decoded remaining-length value to what
// four VBI bytes can actually encode.
func ValidateRemainingLength(length uint32) error {
	if length > maxRemainingLength {
		return ErrInvalidRemainingLength
	}
	return nil
}

// reasonlessPacketTypes lists the fixed packet types that never carry a
// reason code; anything else is assumed to define its own reason code
// space and is accepted here (finer-grained checks live closer to each
// packet's parser).
var reasonlessPacketTypes = map[PacketType]bool{
	CONNECT:     true,
	PUBLISH:     true,
	SUBSCRIBE:   true,
	UNSUBSCRIBE: true,
	PINGREQ:     true,
	PINGRESP:    true,
}

// ValidateReasonCodeForPacket rejects a nonzero reason code on packet
// types that carry no reason code at all.
func ValidateReasonCodeForPacket(packetType PacketType, reasonCode ReasonCode) error {
	if reasonlessPacketTypes[packetType] && reasonCode != 0 {
		return ErrInvalidReasonCode
	}
	return nil
}

// ValidatePropertyLength rejects a property block whose declared length
// runs past the bytes actually remaining in the packet.
func ValidatePropertyLength(propLength uint32, remainingBytes uint32) error {
	if propLength > remainingBytes {
		return ErrInvalidPropertyLength
	}
	return nil
}
