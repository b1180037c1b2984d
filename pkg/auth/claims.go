package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/payboard/payboard-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	DiscordID string
	Role      enums.Role
	Nickname  string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	DiscordID string     `json:"discord_id"`
	Role      enums.Role `json:"role"`
	Nickname  string     `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}
