package rpc

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idOf(n int) *int { return &n }

func TestServeDispatchesRequestAndRepliesOnOneLine(t *testing.T) {
	in := strings.NewReader(`{"method":"echo","params":{"x":1},"id":1}` + "\n")
	var out bytes.Buffer

	conn := NewConn(in, &out, map[string]Handler{
		"echo": func(params json.RawMessage) (any, error) {
			var p struct{ X int }
			require.NoError(t, json.Unmarshal(params, &p))
			return p.X, nil
		},
	})

	require.NoError(t, conn.Serve())

	var resp Response
	line := strings.TrimSpace(out.String())
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	require.NotNil(t, resp.ID)
	assert.Equal(t, 1, *resp.ID)
	assert.Equal(t, float64(1), resp.Result)
	assert.Nil(t, resp.Error)
}

func TestServeNotificationProducesNoReply(t *testing.T) {
	in := strings.NewReader(`{"method":"notify","params":{}}` + "\n")
	var out bytes.Buffer

	called := false
	conn := NewConn(in, &out, map[string]Handler{
		"notify": func(params json.RawMessage) (any, error) {
			called = true
			return nil, nil
		},
	})

	require.NoError(t, conn.Serve())
	assert.True(t, called)
	assert.Empty(t, out.String())
}

func TestServeUnknownMethodReturnsError(t *testing.T) {
	in := strings.NewReader(`{"method":"nope","id":2}` + "\n")
	var out bytes.Buffer

	conn := NewConn(in, &out, map[string]Handler{})
	require.NoError(t, conn.Serve())

	var resp Response
	line := strings.TrimSpace(out.String())
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "nope")
}

func TestServeHandlerErrorIsReportedForRequests(t *testing.T) {
	in := strings.NewReader(`{"method":"fail","id":3}` + "\n")
	var out bytes.Buffer

	conn := NewConn(in, &out, map[string]Handler{
		"fail": func(params json.RawMessage) (any, error) {
			return nil, assertError("boom")
		},
	})
	require.NoError(t, conn.Serve())

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", resp.Error.Message)
}

func TestServeSkipsBlankLines(t *testing.T) {
	in := strings.NewReader("\n\n" + `{"method":"ping","id":4}` + "\n")
	var out bytes.Buffer

	conn := NewConn(in, &out, map[string]Handler{
		"ping": func(params json.RawMessage) (any, error) { return "pong", nil },
	})
	require.NoError(t, conn.Serve())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
}

type assertError string

func (e assertError) Error() string { return string(e) }
