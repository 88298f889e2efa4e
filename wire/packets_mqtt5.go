package wire

import "io"

// ReasonCode is the MQTT 5.0 per-packet outcome code (v5.0 §2.4). Several
// names share the same byte value because the meaning of 0x00 depends on
// which packet type carries it.
type ReasonCode byte

const (
	ReasonSuccess                   ReasonCode = 0x00
	ReasonNormalDisconnection       ReasonCode = 0x00
	ReasonGrantedQoS0               ReasonCode = 0x00
	ReasonGrantedQoS1               ReasonCode = 0x01
	ReasonGrantedQoS2               ReasonCode = 0x02
	ReasonDisconnectWithWillMessage ReasonCode = 0x04
	ReasonNoMatchingSubscribers     ReasonCode = 0x10
	ReasonNoSubscriptionExisted     ReasonCode = 0x11
	ReasonContinueAuthentication    ReasonCode = 0x18
	ReasonReAuthenticate            ReasonCode = 0x19

	ReasonUnspecifiedError                    ReasonCode = 0x80
	ReasonMalformedPacket                      ReasonCode = 0x81
	ReasonProtocolError                        ReasonCode = 0x82
	ReasonImplementationSpecificError          ReasonCode = 0x83
	ReasonUnsupportedProtocolVersion           ReasonCode = 0x84
	ReasonClientIdentifierNotValid             ReasonCode = 0x85
	ReasonBadUsernameOrPassword                ReasonCode = 0x86
	ReasonNotAuthorized                        ReasonCode = 0x87
	ReasonServerUnavailable                    ReasonCode = 0x88
	ReasonServerBusy                           ReasonCode = 0x89
	ReasonBanned                               ReasonCode = 0x8A
	ReasonServerShuttingDown                   ReasonCode = 0x8B
	ReasonBadAuthenticationMethod              ReasonCode = 0x8C
	ReasonKeepAliveTimeout                     ReasonCode = 0x8D
	ReasonSessionTakenOver                     ReasonCode = 0x8E
	ReasonTopicFilterInvalid                   ReasonCode = 0x8F
	ReasonTopicNameInvalid                     ReasonCode = 0x90
	ReasonPacketIdentifierInUse                ReasonCode = 0x91
	ReasonPacketIdentifierNotFound             ReasonCode = 0x92
	ReasonReceiveMaximumExceeded                ReasonCode = 0x93
	ReasonTopicAliasInvalid                     ReasonCode = 0x94
	ReasonPacketTooLarge                        ReasonCode = 0x95
	ReasonMessageRateTooHigh                    ReasonCode = 0x96
	ReasonQuotaExceeded                         ReasonCode = 0x97
	ReasonAdministrativeAction                  ReasonCode = 0x98
	ReasonPayloadFormatInvalid                  ReasonCode = 0x99
	ReasonRetainNotSupported                    ReasonCode = 0x9A
	ReasonQoSNotSupported                       ReasonCode = 0x9B
	ReasonUseAnotherServer                      ReasonCode = 0x9C
	ReasonServerMoved                           ReasonCode = 0x9D
	ReasonSharedSubscriptionsNotSupported       ReasonCode = 0x9E
	ReasonConnectionRateExceeded                ReasonCode = 0x9F
	ReasonMaximumConnectTime                    ReasonCode = 0xA0
	ReasonSubscriptionIdentifiersNotSupported   ReasonCode = 0xA1
	ReasonWildcardSubscriptionsNotSupported     ReasonCode = 0xA2
)

var reasonCodeNames = map[ReasonCode]string{
	ReasonSuccess:                              "Success",
	ReasonGrantedQoS1:                          "GrantedQoS1",
	ReasonGrantedQoS2:                          "GrantedQoS2",
	ReasonDisconnectWithWillMessage:            "DisconnectWithWillMessage",
	ReasonNoMatchingSubscribers:                "NoMatchingSubscribers",
	ReasonNoSubscriptionExisted:                "NoSubscriptionExisted",
	ReasonContinueAuthentication:               "ContinueAuthentication",
	ReasonReAuthenticate:                       "ReAuthenticate",
	ReasonUnspecifiedError:                     "UnspecifiedError",
	ReasonMalformedPacket:                      "MalformedPacket",
	ReasonProtocolError:                        "ProtocolError",
	ReasonImplementationSpecificError:          "ImplementationSpecificError",
	ReasonUnsupportedProtocolVersion:           "UnsupportedProtocolVersion",
	ReasonClientIdentifierNotValid:             "ClientIdentifierNotValid",
	ReasonBadUsernameOrPassword:                "BadUsernameOrPassword",
	ReasonNotAuthorized:                        "NotAuthorized",
	ReasonServerUnavailable:                    "ServerUnavailable",
	ReasonServerBusy:                           "ServerBusy",
	ReasonBanned:                               "Banned",
	ReasonServerShuttingDown:                   "ServerShuttingDown",
	ReasonBadAuthenticationMethod:              "BadAuthenticationMethod",
	ReasonKeepAliveTimeout:                     "KeepAliveTimeout",
	ReasonSessionTakenOver:                     "SessionTakenOver",
	ReasonTopicFilterInvalid:                   "TopicFilterInvalid",
	ReasonTopicNameInvalid:                     "TopicNameInvalid",
	ReasonPacketIdentifierInUse:                "PacketIdentifierInUse",
	ReasonPacketIdentifierNotFound:             "PacketIdentifierNotFound",
	ReasonReceiveMaximumExceeded:               "ReceiveMaximumExceeded",
	ReasonTopicAliasInvalid:                    "TopicAliasInvalid",
	ReasonPacketTooLarge:                       "PacketTooLarge",
	ReasonMessageRateTooHigh:                   "MessageRateTooHigh",
	ReasonQuotaExceeded:                        "QuotaExceeded",
	ReasonAdministrativeAction:                 "AdministrativeAction",
	ReasonPayloadFormatInvalid:                 "PayloadFormatInvalid",
	ReasonRetainNotSupported:                   "RetainNotSupported",
	ReasonQoSNotSupported:                      "QoSNotSupported",
	ReasonUseAnotherServer:                     "UseAnotherServer",
	ReasonServerMoved:                          "ServerMoved",
	ReasonSharedSubscriptionsNotSupported:      "SharedSubscriptionsNotSupported",
	ReasonConnectionRateExceeded:               "ConnectionRateExceeded",
	ReasonMaximumConnectTime:                   "MaximumConnectTime",
	ReasonSubscriptionIdentifiersNotSupported:  "SubscriptionIdentifiersNotSupported",
	ReasonWildcardSubscriptionsNotSupported:    "WildcardSubscriptionsNotSupported",
}

func (rc ReasonCode) String() string {
	if name, ok := reasonCodeNames[rc]; ok {
		return name
	}
	return "UNKNOWN"
}

type ConnectPacket struct {
	FixedHeader     FixedHeader
	ProtocolName    string
	ProtocolVersion ProtocolVersion
	CleanStart      bool
	WillFlag        bool
	WillQoS         QoS
	WillRetain      bool
	PasswordFlag    bool
	UsernameFlag    bool
	KeepAlive       uint16
	Properties      Properties
	ClientID        string
	WillProperties  Properties
	WillTopic       string
	WillPayload     []byte
	Username        string
	Password        []byte
}

type ConnackPacket struct {
	FixedHeader    FixedHeader
	SessionPresent bool
	ReasonCode     ReasonCode
	Properties     Properties
}

// PublishPacket carries an application message. PacketID is only
// meaningful for QoS 1/2.
type PublishPacket struct {
	FixedHeader FixedHeader
	TopicName   string
	PacketID    uint16
	Properties  Properties
	Payload     []byte
}

type PubackPacket struct {
	FixedHeader FixedHeader
	PacketID    uint16
	ReasonCode  ReasonCode
	Properties  Properties
}

type PubrecPacket struct {
	FixedHeader FixedHeader
	PacketID    uint16
	ReasonCode  ReasonCode
	Properties  Properties
}

type PubrelPacket struct {
	FixedHeader FixedHeader
	PacketID    uint16
	ReasonCode  ReasonCode
	Properties  Properties
}

type PubcompPacket struct {
	FixedHeader FixedHeader
	PacketID    uint16
	ReasonCode  ReasonCode
	Properties  Properties
}

type Subscription struct {
	TopicFilter            string
	QoS                     QoS
	NoLocal                 bool
	RetainAsPublished       bool
	RetainHandling          byte
	SubscriptionIdentifier  uint32
}

type SubscribePacket struct {
	FixedHeader   FixedHeader
	PacketID      uint16
	Properties    Properties
	Subscriptions []Subscription
}

type SubackPacket struct {
	FixedHeader FixedHeader
	PacketID    uint16
	Properties  Properties
	ReasonCodes []ReasonCode
}

type UnsubscribePacket struct {
	FixedHeader  FixedHeader
	PacketID     uint16
	Properties   Properties
	TopicFilters []string
}

type UnsubackPacket struct {
	FixedHeader FixedHeader
	PacketID    uint16
	Properties  Properties
	ReasonCodes []ReasonCode
}

type PingreqPacket struct {
	FixedHeader FixedHeader
}

type PingrespPacket struct {
	FixedHeader FixedHeader
}

type DisconnectPacket struct {
	FixedHeader FixedHeader
	ReasonCode  ReasonCode
	Properties  Properties
}

type AuthPacket struct {
	FixedHeader FixedHeader
	ReasonCode  ReasonCode
	Properties  Properties
}

// fieldReader pulls MQTT primitive fields off r, latching the first
// error. Once err is set every subsequent read is a no-op returning the
// zero value, so a parser can read a packet's whole variable header as
// a flat sequence and check the error once at the end — mirroring
// fieldWriter's behavior on the encode side.
type fieldReader struct {
	r   io.Reader
	err error
}

func (f *fieldReader) one() byte {
	if f.err != nil {
		return 0
	}
	v, err := readByte(f.r)
	f.err = err
	return v
}

func (f *fieldReader) u16() uint16 {
	if f.err != nil {
		return 0
	}
	v, err := readTwoByteInt(f.r)
	f.err = err
	return v
}

func (f *fieldReader) str() string {
	if f.err != nil {
		return ""
	}
	v, err := readUTF8String(f.r)
	f.err = err
	return v
}

func (f *fieldReader) binary() []byte {
	if f.err != nil {
		return nil
	}
	v, err := readBinaryData(f.r)
	f.err = err
	return v
}

func (f *fieldReader) properties() Properties {
	if f.err != nil {
		return Properties{}
	}
	props, err := ParseProperties(f.r)
	f.err = err
	if props == nil {
		return Properties{}
	}
	return *props
}

// require latches err if none is already set and the condition has
// already failed; used for the cross-field checks a plain read can't
// express (protocol name, reserved bits, and the like).
func (f *fieldReader) require(ok bool, err error) {
	if f.err == nil && !ok {
		f.err = err
	}
}

// propertiesWireSize is how many bytes a parsed property block actually
// occupied on the wire: its own VBI length prefix plus its payload.
func propertiesWireSize(props *Properties) int {
	return len(EncodeVariableByteIntegerMust(props.Length)) + int(props.Length)
}

func ParseConnectPacket(r io.Reader, fh *FixedHeader) (*ConnectPacket, error) {
	pkt := &ConnectPacket{FixedHeader: *fh}
	fr := &fieldReader{r: r}

	pkt.ProtocolName = fr.str()
	fr.require(pkt.ProtocolName == "MQTT", ErrInvalidProtocolName)

	pkt.ProtocolVersion = ProtocolVersion(fr.one())
	fr.require(pkt.ProtocolVersion == ProtocolVersion50, ErrInvalidProtocolVersion)

	flags := fr.one()
	fr.require(flags&connectFlagReserved == 0, ErrMalformedPacket)
	pkt.CleanStart = flags&0x02 != 0
	pkt.WillFlag = flags&connectFlagWill != 0
	pkt.WillQoS = QoS((flags & connectFlagWillQoS) >> connectFlagWillQoSShift)
	pkt.WillRetain = flags&connectFlagWillRet != 0
	pkt.PasswordFlag = flags&connectFlagPassword != 0
	pkt.UsernameFlag = flags&connectFlagUsername != 0

	pkt.KeepAlive = fr.u16()
	pkt.Properties = fr.properties()
	pkt.ClientID = fr.str()

	if pkt.WillFlag {
		pkt.WillProperties = fr.properties()
		pkt.WillTopic = fr.str()
		pkt.WillPayload = fr.binary()
	}
	if pkt.UsernameFlag {
		pkt.Username = fr.str()
	}
	if pkt.PasswordFlag {
		pkt.Password = fr.binary()
	}

	if fr.err != nil {
		return nil, fr.err
	}
	return pkt, nil
}

func ParseConnackPacket(r io.Reader, fh *FixedHeader) (*ConnackPacket, error) {
	pkt := &ConnackPacket{FixedHeader: *fh}
	fr := &fieldReader{r: r}

	flags := fr.one()
	fr.require(flags&0xFE == 0, ErrMalformedPacket)
	pkt.SessionPresent = flags&0x01 != 0

	pkt.ReasonCode = ReasonCode(fr.one())
	pkt.Properties = fr.properties()

	if fr.err != nil {
		return nil, fr.err
	}
	return pkt, nil
}

func ParsePublishPacket(r io.Reader, fh *FixedHeader) (*PublishPacket, error) {
	pkt := &PublishPacket{FixedHeader: *fh}
	fr := &fieldReader{r: r}

	pkt.TopicName = fr.str()

	headerSize := 2 + len(pkt.TopicName)
	if fh.QoS > QoS0 {
		pkt.PacketID = fr.u16()
		fr.require(pkt.PacketID != 0, ErrInvalidPacketID)
		headerSize += 2
	}

	props := fr.properties()
	pkt.Properties = props
	headerSize += propertiesWireSize(&props)

	if fr.err != nil {
		return nil, fr.err
	}

	payloadLength := int(fh.RemainingLength) - headerSize
	if payloadLength > 0 {
		payload := make([]byte, payloadLength)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, eofOr(err)
		}
		pkt.Payload = payload
	}

	return pkt, nil
}

// parseQoSAck reads the shared PUBACK/PUBREC/PUBREL/PUBCOMP layout:
// packet ID, then a reason code and properties that are only present
// when the fixed header's remaining length says so (MQTT 5.0 omits
// both when the outcome is Success and there's nothing else to say).
func parseQoSAck(r io.Reader, fh *FixedHeader) (packetID uint16, reasonCode ReasonCode, props Properties, err error) {
	fr := &fieldReader{r: r}
	packetID = fr.u16()

	if fh.RemainingLength == 2 {
		return packetID, ReasonSuccess, Properties{}, fr.err
	}

	reasonCode = ReasonCode(fr.one())
	if fh.RemainingLength == 3 {
		return packetID, reasonCode, Properties{}, fr.err
	}

	props = fr.properties()
	return packetID, reasonCode, props, fr.err
}

func ParsePubackPacket(r io.Reader, fh *FixedHeader) (*PubackPacket, error) {
	id, rc, props, err := parseQoSAck(r, fh)
	if err != nil {
		return nil, err
	}
	return &PubackPacket{FixedHeader: *fh, PacketID: id, ReasonCode: rc, Properties: props}, nil
}

func ParsePubrecPacket(r io.Reader, fh *FixedHeader) (*PubrecPacket, error) {
	id, rc, props, err := parseQoSAck(r, fh)
	if err != nil {
		return nil, err
	}
	return &PubrecPacket{FixedHeader: *fh, PacketID: id, ReasonCode: rc, Properties: props}, nil
}

func ParsePubrelPacket(r io.Reader, fh *FixedHeader) (*PubrelPacket, error) {
	id, rc, props, err := parseQoSAck(r, fh)
	if err != nil {
		return nil, err
	}
	return &PubrelPacket{FixedHeader: *fh, PacketID: id, ReasonCode: rc, Properties: props}, nil
}

func ParsePubcompPacket(r io.Reader, fh *FixedHeader) (*PubcompPacket, error) {
	id, rc, props, err := parseQoSAck(r, fh)
	if err != nil {
		return nil, err
	}
	return &PubcompPacket{FixedHeader: *fh, PacketID: id, ReasonCode: rc, Properties: props}, nil
}

func ParseSubscribePacket(r io.Reader, fh *FixedHeader) (*SubscribePacket, error) {
	pkt := &SubscribePacket{FixedHeader: *fh}
	fr := &fieldReader{r: r}

	pkt.PacketID = fr.u16()
	props := fr.properties()
	pkt.Properties = props
	if fr.err != nil {
		return nil, fr.err
	}

	bytesRead := 2 + propertiesWireSize(&props)
	pkt.Subscriptions = make([]Subscription, 0, 2)

	for bytesRead < int(fh.RemainingLength) {
		topicFilter := fr.str()
		options := fr.one()
		if fr.err != nil {
			return nil, fr.err
		}
		bytesRead += 2 + len(topicFilter) + 1

		if options&subOptReservedBits != 0 {
			return nil, ErrMalformedPacket
		}

		pkt.Subscriptions = append(pkt.Subscriptions, Subscription{
			TopicFilter:       topicFilter,
			QoS:               QoS(options & subOptQoSMask),
			NoLocal:           options&0x04 != 0,
			RetainAsPublished: options&0x08 != 0,
			RetainHandling:    (options & subOptRetainHandle) >> 4,
		})
	}

	if len(pkt.Subscriptions) == 0 {
		return nil, ErrEmptySubscriptionList
	}
	return pkt, nil
}

// parseReasonCodeTail reads the trailing one-byte-per-filter reason
// codes that close out SUBACK and UNSUBACK, once the fixed header's
// remaining length tells us how many are left after packet ID and
// properties.
func parseReasonCodeTail(r io.Reader, fh *FixedHeader, consumedSoFar int) ([]ReasonCode, error) {
	count := int(fh.RemainingLength) - consumedSoFar
	codes := make([]ReasonCode, count)
	for i := range codes {
		b, err := readByte(r)
		if err != nil {
			return nil, err
		}
		codes[i] = ReasonCode(b)
	}
	return codes, nil
}

func ParseSubackPacket(r io.Reader, fh *FixedHeader) (*SubackPacket, error) {
	pkt := &SubackPacket{FixedHeader: *fh}
	fr := &fieldReader{r: r}

	pkt.PacketID = fr.u16()
	props := fr.properties()
	pkt.Properties = props
	if fr.err != nil {
		return nil, fr.err
	}

	codes, err := parseReasonCodeTail(r, fh, 2+propertiesWireSize(&props))
	if err != nil {
		return nil, err
	}
	pkt.ReasonCodes = codes
	return pkt, nil
}

func ParseUnsubscribePacket(r io.Reader, fh *FixedHeader) (*UnsubscribePacket, error) {
	pkt := &UnsubscribePacket{FixedHeader: *fh}
	fr := &fieldReader{r: r}

	pkt.PacketID = fr.u16()
	props := fr.properties()
	pkt.Properties = props
	if fr.err != nil {
		return nil, fr.err
	}

	bytesRead := 2 + propertiesWireSize(&props)
	pkt.TopicFilters = make([]string, 0, 2)
	for bytesRead < int(fh.RemainingLength) {
		topicFilter := fr.str()
		if fr.err != nil {
			return nil, fr.err
		}
		bytesRead += 2 + len(topicFilter)
		pkt.TopicFilters = append(pkt.TopicFilters, topicFilter)
	}

	if len(pkt.TopicFilters) == 0 {
		return nil, ErrEmptyUnsubscribeList
	}
	return pkt, nil
}

func ParseUnsubackPacket(r io.Reader, fh *FixedHeader) (*UnsubackPacket, error) {
	pkt := &UnsubackPacket{FixedHeader: *fh}
	fr := &fieldReader{r: r}

	pkt.PacketID = fr.u16()
	props := fr.properties()
	pkt.Properties = props
	if fr.err != nil {
		return nil, fr.err
	}

	codes, err := parseReasonCodeTail(r, fh, 2+propertiesWireSize(&props))
	if err != nil {
		return nil, err
	}
	pkt.ReasonCodes = codes
	return pkt, nil
}

func ParseDisconnectPacket(r io.Reader, fh *FixedHeader) (*DisconnectPacket, error) {
	pkt := &DisconnectPacket{FixedHeader: *fh}
	if fh.RemainingLength == 0 {
		pkt.ReasonCode = ReasonNormalDisconnection
		return pkt, nil
	}

	fr := &fieldReader{r: r}
	pkt.ReasonCode = ReasonCode(fr.one())
	if fh.RemainingLength > 1 {
		pkt.Properties = fr.properties()
	}
	if fr.err != nil {
		return nil, fr.err
	}
	return pkt, nil
}

func ParseAuthPacket(r io.Reader, fh *FixedHeader) (*AuthPacket, error) {
	if fh.RemainingLength == 0 {
		return nil, ErrMalformedPacket
	}

	pkt := &AuthPacket{FixedHeader: *fh}
	fr := &fieldReader{r: r}
	pkt.ReasonCode = ReasonCode(fr.one())
	if fh.RemainingLength > 1 {
		pkt.Properties = fr.properties()
	}
	if fr.err != nil {
		return nil, fr.err
	}
	return pkt, nil
}

func ParsePingreqPacket(fh *FixedHeader) (*PingreqPacket, error) {
	if fh.RemainingLength != 0 {
		return nil, ErrMalformedPacket
	}
	return &PingreqPacket{FixedHeader: *fh}, nil
}

func ParsePingrespPacket(fh *FixedHeader) (*PingrespPacket, error) {
	if fh.RemainingLength != 0 {
		return nil, ErrMalformedPacket
	}
	return &PingrespPacket{FixedHeader: *fh}, nil
}
