// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package escalation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPacket() *Packet {
	return &Packet{
		RunID:          "run-1",
		ConversationID: "c1",
		CreatedAt:      time.Now(),
	}
}

func TestHTTPSinkSubmit(t *testing.T) {
	var received Packet
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"escalation_id":"esc-42"}`))
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL, 2*time.Second)
	id, err := sink.Submit(context.Background(), testPacket())
	require.NoError(t, err)
	assert.Equal(t, "esc-42", id)
	assert.Equal(t, "run-1", received.RunID)
}

func TestHTTPSinkServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"queue full"}`))
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL, 2*time.Second)
	_, err := sink.Submit(context.Background(), testPacket())
	assert.Error(t, err)
}

func TestHTTPSinkMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL, 2*time.Second)
	_, err := sink.Submit(context.Background(), testPacket())
	assert.Error(t, err)
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	id, err := sink.Submit(context.Background(), testPacket())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	packets := sink.Packets()
	require.Len(t, packets, 1)
	assert.Equal(t, id, packets[0].EscalationID)
	assert.Equal(t, "run-1", packets[0].RunID)
}
