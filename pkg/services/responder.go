package services

import (
	"context"

	"kaiwa/models"
)

// Responder is the boundary to the external text generator: ordered prior
// messages in, plain reply text out.
type Responder interface {
	Generate(ctx context.Context, history []models.Message, utterance string) (string, error)
}

// FallbackReply is returned when the generator answers but yields no usable
// text. It is a reply, not an error: the exchange still completes.
const FallbackReply = "Sorry, I don't have an answer for that right now."

// The external API speaks "user"/"model"; internally messages are
// "user"/"assistant". The translation happens only at this boundary.
var (
	roleToWire = map[models.Role]string{
		models.RoleUser:      "user",
		models.RoleAssistant: "model",
	}
	wireToRole = map[string]models.Role{
		"user":  models.RoleUser,
		"model": models.RoleAssistant,
	}
)

// WireRole maps an internal role to the external vocabulary. Unknown roles
// degrade to the user role rather than leaking internal names upstream.
func WireRole(r models.Role) string {
	if w, ok := roleToWire[r]; ok {
		return w
	}
	return "user"
}

// InternalRole maps an external role name back to the internal enum.
func InternalRole(wire string) (models.Role, bool) {
	r, ok := wireToRole[wire]
	return r, ok
}
