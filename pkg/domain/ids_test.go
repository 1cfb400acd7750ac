package domain

import (
	"encoding/json"
	"strings"
	"testing"

	dErrors "sahayak/pkg/domain-errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parsers exercises every typed identifier the same way.
var parsers = map[string]func(string) (string, error){
	"owner": func(s string) (string, error) {
		id, err := ParseOwnerID(s)
		return id.String(), err
	},
	"session": func(s string) (string, error) {
		id, err := ParseSessionID(s)
		return id.String(), err
	},
	"application": func(s string) (string, error) {
		id, err := ParseApplicationID(s)
		return id.String(), err
	},
}

func TestParseIDs(t *testing.T) {
	valid := "550e8400-e29b-41d4-a716-446655440000"
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: valid, want: valid, ok: true},
		{input: strings.ToUpper(valid), want: valid, ok: true},
		{input: ""},
		{input: "not-a-uuid"},
		{input: uuid.Nil.String()},
		{input: "'; DROP TABLE application_records;--"},
		{input: "../../../etc/passwd"},
		{input: "550e8400\x00-e29b-41d4-a716-446655440000"},
		{input: strings.Repeat("a", 1000)},
	}
	for kind, parse := range parsers {
		for _, tt := range tests {
			t.Run(kind+"/"+tt.input, func(t *testing.T) {
				got, err := parse(tt.input)
				if !tt.ok {
					require.Error(t, err)
					assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	}
}

func TestIDsRoundTripThroughJSON(t *testing.T) {
	type payload struct {
		Owner   OwnerID       `json:"owner"`
		Session SessionID     `json:"session"`
		App     ApplicationID `json:"app"`
	}
	in := payload{Owner: OwnerID(uuid.New()), Session: NewSessionID(), App: NewApplicationID()}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), in.Session.String())

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"owner":"00000000-0000-0000-0000-000000000000"}`), &out)
	require.Error(t, err)
}

func TestParseJurisdiction(t *testing.T) {
	j, err := ParseJurisdiction(" in-ka ")
	require.NoError(t, err)
	assert.Equal(t, Jurisdiction("IN-KA"), j)

	_, err = ParseJurisdiction("")
	require.Error(t, err)

	_, err = ParseJurisdiction("IN/KA")
	require.Error(t, err)
	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "jurisdiction", de.Field)
}

func TestParseServiceID(t *testing.T) {
	s, err := ParseServiceID("  Income-Certificate ")
	require.NoError(t, err)
	assert.Equal(t, ServiceID("income-certificate"), s)

	for _, bad := range []string{"", "   ", strings.Repeat("x", 129)} {
		_, err := ParseServiceID(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "input %q", bad)
	}
}
