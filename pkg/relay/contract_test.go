package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindTimeout, ParseKind("timeout"))
	assert.Equal(t, KindUnauthorized, ParseKind("unauthorized"))
	assert.Equal(t, KindUnknown, ParseKind(""))
	assert.Equal(t, KindUnknown, ParseKind("Function not found"))
}

func TestRequestAcceptsNullSession(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"message":"hi","sessionId":null}`), &req))
	assert.Equal(t, "hi", req.Message)
	assert.Nil(t, req.SessionID)
}

func TestSuccessResponseOmitsErrorFields(t *testing.T) {
	b, err := json.Marshal(Response{Response: "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"hello"}`, string(b))
}
