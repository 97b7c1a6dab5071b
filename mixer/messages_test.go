package mixer

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEnvelopeRoundTrip verifies the outer frame survives encode/decode
// with its payload intact.
func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := marshalEnvelope(MessageTypeHello, helloPayload{
		Token:          "jwt",
		SessionID:      "sid-1",
		StreamUserData: true,
	})
	require.NoError(t, err)

	msgType, raw, err := unmarshalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeHello, msgType)

	var hello helloPayload
	require.NoError(t, sonic.Unmarshal(raw, &hello))
	assert.Equal(t, "jwt", hello.Token)
	assert.Equal(t, "sid-1", hello.SessionID)
	assert.True(t, hello.StreamUserData)
}

// TestEnvelopeWithoutPayload verifies payload-free frames such as bye.
func TestEnvelopeWithoutPayload(t *testing.T) {
	data, err := marshalEnvelope(MessageTypeBye, nil)
	require.NoError(t, err)

	msgType, raw, err := unmarshalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeBye, msgType)
	assert.Empty(t, raw)
}

// TestUnmarshalEnvelopeRejectsMissingType verifies frames without a type
// are refused rather than routed as the zero value.
func TestUnmarshalEnvelopeRejectsMissingType(t *testing.T) {
	_, _, err := unmarshalEnvelope([]byte(`{"payload":{}}`))
	assert.Error(t, err)

	_, _, err = unmarshalEnvelope([]byte(`not json`))
	assert.Error(t, err)
}
