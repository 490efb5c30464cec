// Package models defines the client-side data types exchanged with the
// portal backend and the session snapshot shown to views.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ID is an identifier the backend may send as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("id must be a string or a number")
	}
	*id = ID(n.String())
	return nil
}

// UserProfile is the backend's view of the current user.
type UserProfile struct {
	ID            ID     `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

func (p *UserProfile) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID                  ID      `json:"id"`
		Username            string  `json:"username"`
		Email               *string `json:"email"`
		WalletAddress       *string `json:"walletAddress"`
		WalletAddressLegacy *string `json:"wallet_address"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*p = UserProfile{ID: raw.ID, Username: raw.Username}
	if raw.Email != nil {
		p.Email = *raw.Email
	}
	switch {
	case raw.WalletAddress != nil:
		p.WalletAddress = *raw.WalletAddress
	case raw.WalletAddressLegacy != nil:
		p.WalletAddress = *raw.WalletAddressLegacy
	}
	return nil
}

// Validate rejects profiles that cannot identify a user.
func (p *UserProfile) Validate() error {
	if strings.TrimSpace(p.Username) == "" {
		return errors.New("profile has no username")
	}
	return nil
}

// DisplayName prefers the username and falls back to a shortened wallet address.
func (p *UserProfile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Username != "" {
		return p.Username
	}
	return ShortAddress(p.WalletAddress)
}

// ShortAddress renders 0x1234...abcd for long wallet addresses.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// RegisteredUser is the body returned by the register endpoint.
type RegisteredUser struct {
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

// ProfileUpdate is a partial profile; nil fields are left unchanged.
type ProfileUpdate struct {
	Email *string `json:"email,omitempty"`
}
