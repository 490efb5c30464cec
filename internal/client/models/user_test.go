package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfile_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want UserProfile
	}{
		{
			name: "string id",
			in:   `{"id":"1","username":"bob"}`,
			want: UserProfile{ID: "1", Username: "bob"},
		},
		{
			name: "numeric id and camel wallet",
			in:   `{"id":42,"username":"w","walletAddress":"0xabc"}`,
			want: UserProfile{ID: "42", Username: "w", WalletAddress: "0xabc"},
		},
		{
			name: "snake wallet and null email",
			in:   `{"username":"user_0xabc","email":null,"wallet_address":"0xabc","disabled":false}`,
			want: UserProfile{Username: "user_0xabc", WalletAddress: "0xabc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got UserProfile
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserProfile_BadID(t *testing.T) {
	var p UserProfile
	require.Error(t, json.Unmarshal([]byte(`{"id":true,"username":"x"}`), &p))
}

func TestUserProfile_Validate(t *testing.T) {
	require.NoError(t, (&UserProfile{Username: "bob"}).Validate())
	require.Error(t, (&UserProfile{ID: "1"}).Validate())
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x1234...cdef", ShortAddress("0x1234567890abcdef"))
	assert.Equal(t, "0x12", ShortAddress("0x12"))
}

func TestContentValidate(t *testing.T) {
	require.NoError(t, Topic{ID: 1, Title: "Go", Progress: 100}.Validate())
	require.Error(t, Topic{ID: 1, Title: "Go", Progress: 101}.Validate())
	require.Error(t, Topic{ID: 1}.Validate())

	require.NoError(t, Tool{ID: 1, Name: "fmt", Status: ToolMaintenance}.Validate())
	require.Error(t, Tool{ID: 1, Name: "fmt", Status: "broken"}.Validate())
}

func TestSession_Authenticated(t *testing.T) {
	assert.False(t, Session{}.Authenticated())
	assert.False(t, Session{State: StateRestoring, Token: "t", User: &UserProfile{Username: "a"}}.Authenticated())
	assert.False(t, Session{State: StateAuthenticated, Token: "t"}.Authenticated())
	assert.True(t, Session{State: StateAuthenticated, Token: "t", User: &UserProfile{Username: "a"}}.Authenticated())
}
