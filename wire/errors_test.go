package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketError(t *testing.T) {
	t.Run("with message", func(t *testing.T) {
		pktErr := &PacketError{
			Err:        ErrMalformedPacket,
			ReasonCode: ReasonMalformedPacket,
			Message:    "invalid variable byte integer",
		}
		assert.Equal(t, "malformed packet: invalid variable byte integer", pktErr.Error())
	})

	t.Run("without message", func(t *testing.T) {
		pktErr := &PacketError{Err: ErrMalformedPacket, ReasonCode: ReasonMalformedPacket}
		assert.Equal(t, "malformed packet", pktErr.Error())
	})

	t.Run("unwraps to the underlying error", func(t *testing.T) {
		pktErr := &PacketError{Err: ErrMalformedPacket, ReasonCode: ReasonMalformedPacket, Message: "test"}
		assert.Equal(t, ErrMalformedPacket, pktErr.Unwrap())
	})
}

func TestNewMalformedPacketError(t *testing.T) {
	err := NewMalformedPacketError(ErrInvalidQoS, "QoS value is 3")

	require.NotNil(t, err)
	assert.Equal(t, ReasonMalformedPacket, err.ReasonCode)
	assert.Equal(t, ErrInvalidQoS, err.Err)
	assert.Equal(t, "QoS value is 3", err.Message)
	assert.Contains(t, err.Error(), "invalid QoS level")
	assert.Contains(t, err.Error(), "QoS value is 3")
}

func TestNewProtocolError(t *testing.T) {
	err := NewProtocolError(ErrInvalidFlags, "PUBREL flags must be 0x02")

	require.NotNil(t, err)
	assert.Equal(t, ReasonProtocolError, err.ReasonCode)
	assert.Equal(t, ErrInvalidFlags, err.Err)
	assert.Equal(t, "PUBREL flags must be 0x02", err.Message)
}

func TestGetReasonCode(t *testing.T) {
	cases := map[string]struct {
		err  error
		want ReasonCode
	}{
		"wrapped malformed packet error":    {NewMalformedPacketError(ErrInvalidQoS, "test"), ReasonMalformedPacket},
		"wrapped protocol error":            {NewProtocolError(ErrInvalidFlags, "test"), ReasonProtocolError},
		"ErrMalformedPacket":                {ErrMalformedPacket, ReasonMalformedPacket},
		"ErrMalformedVariableByteInteger":   {ErrMalformedVariableByteInteger, ReasonMalformedPacket},
		"ErrInvalidConnectFlags":            {ErrInvalidConnectFlags, ReasonMalformedPacket},
		"ErrInvalidWillQoS":                 {ErrInvalidWillQoS, ReasonMalformedPacket},
		"ErrInvalidQoS":                     {ErrInvalidQoS, ReasonMalformedPacket},
		"ErrInvalidRemainingLength":         {ErrInvalidRemainingLength, ReasonMalformedPacket},
		"ErrInvalidType":                    {ErrInvalidType, ReasonProtocolError},
		"ErrInvalidFlags":                   {ErrInvalidFlags, ReasonProtocolError},
		"ErrInvalidReservedType":            {ErrInvalidReservedType, ReasonProtocolError},
		"ErrWillFlagMismatch":               {ErrWillFlagMismatch, ReasonProtocolError},
		"ErrInvalidPacketID":                {ErrInvalidPacketID, ReasonProtocolError},
		"ErrInvalidPacketIDZero":            {ErrInvalidPacketIDZero, ReasonProtocolError},
		"ErrMissingPacketID":                {ErrMissingPacketID, ReasonProtocolError},
		"ErrEmptySubscriptionList":          {ErrEmptySubscriptionList, ReasonProtocolError},
		"ErrEmptyUnsubscribeList":           {ErrEmptyUnsubscribeList, ReasonProtocolError},
		"ErrInvalidProtocolVersion":         {ErrInvalidProtocolVersion, ReasonUnsupportedProtocolVersion},
		"ErrInvalidTopicFilter":             {ErrInvalidTopicFilter, ReasonTopicFilterInvalid},
		"ErrEmptyTopicFilter":               {ErrEmptyTopicFilter, ReasonTopicFilterInvalid},
		"ErrInvalidTopicName":               {ErrInvalidTopicName, ReasonTopicNameInvalid},
		"ErrInvalidPublishTopicName":        {ErrInvalidPublishTopicName, ReasonTopicNameInvalid},
		"ErrPayloadTooLarge":                {ErrPayloadTooLarge, ReasonPacketTooLarge},
		"an error this package never defined": {errors.New("unknown error"), ReasonUnspecifiedError},
		"ErrUnexpectedEOF is unspecified":   {ErrUnexpectedEOF, ReasonUnspecifiedError},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.want, GetReasonCode(c.err))
		})
	}
}

func TestGetReasonCode_WrappedErrors(t *testing.T) {
	t.Run("PacketError recovered through errors.As", func(t *testing.T) {
		pktErr := NewMalformedPacketError(ErrInvalidQoS, "test")
		var target *PacketError
		if errors.As(pktErr, &target) {
			assert.Equal(t, ReasonMalformedPacket, target.ReasonCode)
		}
	})

	t.Run("plain wrapped error falls back to unspecified", func(t *testing.T) {
		wrapped := errors.New("wrapped: " + ErrInvalidQoS.Error())
		assert.Equal(t, ReasonUnspecifiedError, GetReasonCode(wrapped))
	})
}

func TestErrorPropagation(t *testing.T) {
	t.Run("errors.Is sees through to the sentinel", func(t *testing.T) {
		pktErr := NewMalformedPacketError(ErrInvalidQoS, "test")
		assert.True(t, errors.Is(pktErr, ErrInvalidQoS))
	})

	t.Run("errors.As recovers the PacketError", func(t *testing.T) {
		pktErr := NewProtocolError(ErrInvalidFlags, "test")
		var target *PacketError
		assert.True(t, errors.As(pktErr, &target))
		assert.Equal(t, ReasonProtocolError, target.ReasonCode)
	})
}

func TestMalformedPacketErrorSentinelsAreDefined(t *testing.T) {
	sentinels := map[string]error{
		"ErrInvalidConnectFlags":      ErrInvalidConnectFlags,
		"ErrInvalidWillQoS":           ErrInvalidWillQoS,
		"ErrWillFlagMismatch":         ErrWillFlagMismatch,
		"ErrMissingPacketID":          ErrMissingPacketID,
		"ErrInvalidPacketIDZero":      ErrInvalidPacketIDZero,
		"ErrInvalidRemainingLength":   ErrInvalidRemainingLength,
		"ErrInvalidTopicName":        ErrInvalidTopicName,
		"ErrInvalidTopicFilter":      ErrInvalidTopicFilter,
		"ErrEmptyTopicFilter":        ErrEmptyTopicFilter,
		"ErrInvalidSubscriptionOpts": ErrInvalidSubscriptionOpts,
		"ErrEmptySubscriptionList":   ErrEmptySubscriptionList,
		"ErrEmptyUnsubscribeList":    ErrEmptyUnsubscribeList,
		"ErrInvalidPropertyLength":   ErrInvalidPropertyLength,
		"ErrPropertyTooLarge":        ErrPropertyTooLarge,
		"ErrInvalidReasonCode":       ErrInvalidReasonCode,
		"ErrPayloadTooLarge":         ErrPayloadTooLarge,
		"ErrInvalidPublishTopicName": ErrInvalidPublishTopicName,
		"ErrUsernameWithoutFlag":     ErrUsernameWithoutFlag,
		"ErrPasswordWithoutFlag":     ErrPasswordWithoutFlag,
		"ErrPasswordWithoutUsername": ErrPasswordWithoutUsername,
		"ErrWillPropsWithoutWillFlag": ErrWillPropsWithoutWillFlag,
	}
	for name, err := range sentinels {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, err)
		})
	}
}

func TestReasonCodeMapping(t *testing.T) {
	cases := map[ReasonCode]byte{
		ReasonSuccess:                     0x00,
		ReasonMalformedPacket:             0x81,
		ReasonProtocolError:               0x82,
		ReasonImplementationSpecificError: 0x83,
		ReasonUnsupportedProtocolVersion:  0x84,
		ReasonTopicFilterInvalid:          0x8F,
		ReasonTopicNameInvalid:            0x90,
		ReasonPacketTooLarge:              0x95,
	}
	for code, want := range cases {
		assert.Equal(t, want, byte(code))
	}
}
