package web

import (
	"crypto/rand"
	"encoding/gob"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const (
	sessionCookie = "ghbackup_session"
	flashKey      = "flashes"
	sessionMaxAge = 24 * 60 * 60
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown as a toast on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	// сессия кодируется через gob
	gob.Register(Flash{})
}

func alertClass(category string) string {
	switch category {
	case FlashSuccess:
		return "alert-success"
	case FlashError:
		return "alert-danger"
	case FlashWarning:
		return "alert-warning"
	default:
		return "alert-info"
	}
}

// newSessionStore returns a signed cookie store. An empty secret gets a random
// per-process key, so flashes do not survive a restart.
func newSessionStore(secret string) (sessions.Store, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
	}
	store := cookie.NewStore(key)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// flash queues a message for the current request.
// It reaches the browser either on the page rendered now or through the session saved by redirect.
func flash(c *gin.Context, category, message string) {
	pending := pendingFlashes(c)
	c.Set(flashKey, append(pending, Flash{Category: category, Message: message}))
}

func pendingFlashes(c *gin.Context) []Flash {
	if v, ok := c.Get(flashKey); ok {
		if list, ok := v.([]Flash); ok {
			return list
		}
	}
	return nil
}

// redirect moves pending flashes into the session and answers 303 See Other.
func redirect(c *gin.Context, location string) {
	if pending := pendingFlashes(c); len(pending) > 0 {
		session := sessions.Default(c)
		for _, f := range pending {
			session.AddFlash(f)
		}
		if err := session.Save(); err != nil {
			_ = c.Error(fmt.Errorf("failed to save flashes: %w", err))
		}
		c.Set(flashKey, []Flash(nil))
	}
	c.Redirect(http.StatusSeeOther, location)
}

// popFlashes returns flashes carried by the session plus those queued in this request.
// Session flashes are consumed.
func popFlashes(c *gin.Context) []Flash {
	var list []Flash
	session := sessions.Default(c)
	if stored := session.Flashes(); len(stored) > 0 {
		for _, v := range stored {
			if f, ok := v.(Flash); ok {
				list = append(list, f)
			}
		}
		if err := session.Save(); err != nil {
			_ = c.Error(fmt.Errorf("failed to clear flashes: %w", err))
		}
	}
	list = append(list, pendingFlashes(c)...)
	c.Set(flashKey, []Flash(nil))
	return list
}
