// middleware/session.go
package middleware

import (
	"tournament-registration/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	sessionUserKey  = "session_user"
	sessionErrorKey = "session_error"
)

// SessionContextMiddleware decodes the user_session cookie and attaches the
// result for handlers. It never rejects a request on its own.
func SessionContextMiddleware(codec *services.SessionCodec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		su, ok, err := codec.Read(c)
		switch {
		case !ok:
		case err != nil:
			log.Warn().Err(err).Str("path", c.Path()).Msg("[SESSION] malformed session cookie")
			c.Locals(sessionErrorKey, err)
		default:
			c.Locals(sessionUserKey, su)
		}
		return c.Next()
	}
}

// SessionFrom returns the session attached by SessionContextMiddleware.
// A nil user with a nil error means the request carried no cookie.
func SessionFrom(c *fiber.Ctx) (*services.SessionUser, error) {
	if err, ok := c.Locals(sessionErrorKey).(error); ok {
		return nil, err
	}
	su, _ := c.Locals(sessionUserKey).(*services.SessionUser)
	return su, nil
}
