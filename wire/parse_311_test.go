package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectPacket311RoundTrip(t *testing.T) {
	orig := &ConnectPacket311{
		ProtocolName:    "MQTT",
		ProtocolVersion: ProtocolVersion311,
		CleanSession:    true,
		WillFlag:        true,
		WillQoS:         QoS1,
		WillRetain:      true,
		UsernameFlag:    true,
		PasswordFlag:    true,
		KeepAlive:       60,
		ClientID:        "sensor-42",
		WillTopic:       "sensors/sensor-42/status",
		WillPayload:     []byte("offline"),
		Username:        "sensor-42",
		Password:        []byte("s3cret"),
	}

	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf))

	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, CONNECT, fh.Type)

	got, err := ParseConnectPacket311(&buf, fh)
	require.NoError(t, err)

	assert.Equal(t, orig.ClientID, got.ClientID)
	assert.True(t, got.CleanSession)
	assert.True(t, got.WillFlag)
	assert.Equal(t, QoS1, got.WillQoS)
	assert.True(t, got.WillRetain)
	assert.Equal(t, orig.WillTopic, got.WillTopic)
	assert.Equal(t, orig.WillPayload, got.WillPayload)
	assert.Equal(t, orig.Username, got.Username)
	assert.Equal(t, orig.Password, got.Password)
	assert.Equal(t, uint16(60), got.KeepAlive)
}

func TestParseConnectPacket311RejectsWrongVersion(t *testing.T) {
	orig := &ConnectPacket311{ProtocolName: "MQTT", ProtocolVersion: ProtocolVersion50, ClientID: "c"}
	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf))

	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)

	_, err = ParseConnectPacket311(&buf, fh)
	assert.ErrorIs(t, err, ErrInvalidProtocolVersion)
}

func TestParseConnackPacket311(t *testing.T) {
	orig := &ConnackPacket311{SessionPresent: true, ReturnCode: ConnectAccepted311}
	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf))

	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)

	got, err := ParseConnackPacket311(&buf, fh)
	require.NoError(t, err)
	assert.True(t, got.SessionPresent)
	assert.Equal(t, ConnectAccepted311, got.ReturnCode)
}

func TestParsePublishPacket311QoS0NoPacketID(t *testing.T) {
	orig := &PublishPacket311{
		FixedHeader: FixedHeader{QoS: QoS0},
		TopicName:   "a/b",
		Payload:     []byte("payload"),
	}
	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf))

	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)

	got, err := ParsePublishPacket311(&buf, fh)
	require.NoError(t, err)
	assert.Equal(t, "a/b", got.TopicName)
	assert.Equal(t, uint16(0), got.PacketID)
	assert.Equal(t, []byte("payload"), got.Payload)
}

func TestParsePublishPacket311QoS1HasPacketID(t *testing.T) {
	orig := &PublishPacket311{
		FixedHeader: FixedHeader{QoS: QoS1},
		TopicName:   "a/b",
		PacketID:    7,
		Payload:     []byte("payload"),
	}
	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf))

	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)

	got, err := ParsePublishPacket311(&buf, fh)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), got.PacketID)
}

func TestParsePubackPubrecPubrelPubcomp311(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PubackPacket311{PacketID: 10}).Encode(&buf))
	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)
	puback, err := ParsePubackPacket311(&buf, fh)
	require.NoError(t, err)
	assert.Equal(t, uint16(10), puback.PacketID)

	buf.Reset()
	require.NoError(t, (&PubrecPacket311{PacketID: 11}).Encode(&buf))
	fh, err = ParseFixedHeader(&buf)
	require.NoError(t, err)
	pubrec, err := ParsePubrecPacket311(&buf, fh)
	require.NoError(t, err)
	assert.Equal(t, uint16(11), pubrec.PacketID)

	buf.Reset()
	require.NoError(t, (&PubrelPacket311{PacketID: 12}).Encode(&buf))
	fh, err = ParseFixedHeader(&buf)
	require.NoError(t, err)
	pubrel, err := ParsePubrelPacket311(&buf, fh)
	require.NoError(t, err)
	assert.Equal(t, uint16(12), pubrel.PacketID)

	buf.Reset()
	require.NoError(t, (&PubcompPacket311{PacketID: 13}).Encode(&buf))
	fh, err = ParseFixedHeader(&buf)
	require.NoError(t, err)
	pubcomp, err := ParsePubcompPacket311(&buf, fh)
	require.NoError(t, err)
	assert.Equal(t, uint16(13), pubcomp.PacketID)
}

func TestParseSubscribePacket311(t *testing.T) {
	orig := &SubscribePacket311{
		PacketID: 5,
		Subscriptions: []Subscription311{
			{TopicFilter: "a/b", QoS: QoS1},
			{TopicFilter: "c/d", QoS: QoS2},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf))

	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)

	got, err := ParseSubscribePacket311(&buf, fh)
	require.NoError(t, err)
	require.Len(t, got.Subscriptions, 2)
	assert.Equal(t, "a/b", got.Subscriptions[0].TopicFilter)
	assert.Equal(t, QoS1, got.Subscriptions[0].QoS)
	assert.Equal(t, "c/d", got.Subscriptions[1].TopicFilter)
	assert.Equal(t, QoS2, got.Subscriptions[1].QoS)
}

func TestParseSubackPacket311(t *testing.T) {
	orig := &SubackPacket311{PacketID: 5, ReturnCodes: []byte{0x00, 0x01, 0x80}}
	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf))

	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)

	got, err := ParseSubackPacket311(&buf, fh)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x80}, got.ReturnCodes)
}

func TestParseUnsubscribeUnsuback311(t *testing.T) {
	orig := &UnsubscribePacket311{PacketID: 9, TopicFilters: []string{"a/b", "c/d"}}
	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf))

	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)

	got, err := ParseUnsubscribePacket311(&buf, fh)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b", "c/d"}, got.TopicFilters)

	buf.Reset()
	require.NoError(t, (&UnsubackPacket311{PacketID: 9}).Encode(&buf))
	fh, err = ParseFixedHeader(&buf)
	require.NoError(t, err)
	unsuback, err := ParseUnsubackPacket311(&buf, fh)
	require.NoError(t, err)
	assert.Equal(t, uint16(9), unsuback.PacketID)
}

func TestParseDisconnectPingPacket311(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&DisconnectPacket311{}).Encode(&buf))
	fh, err := ParseFixedHeader(&buf)
	require.NoError(t, err)
	_, err = ParseDisconnectPacket311(fh)
	require.NoError(t, err)

	fh2 := &FixedHeader{Type: PINGREQ, RemainingLength: 0}
	_, err = ParsePingreqPacket311(fh2)
	require.NoError(t, err)

	fh3 := &FixedHeader{Type: PINGRESP, RemainingLength: 0}
	_, err = ParsePingrespPacket311(fh3)
	require.NoError(t, err)
}

func TestParseSubscribePacket311RejectsEmpty(t *testing.T) {
	fh := &FixedHeader{Type: SUBSCRIBE, RemainingLength: 2}
	buf := bytes.NewBuffer([]byte{0x00, 0x05})
	_, err := ParseSubscribePacket311(buf, fh)
	assert.ErrorIs(t, err, ErrEmptySubscriptionList)
}
