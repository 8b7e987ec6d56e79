package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	sessionCookiePrefix = "kubarr_session_"
	activeCookieName    = "kubarr_active_session"

	// legacyCookieName is the single-session cookie of older releases. It is
	// read as an alias and cleared on logout, never written.
	legacyCookieName = "kubarr_session"
)

func slotCookieName(slot int) string {
	return sessionCookiePrefix + strconv.Itoa(slot)
}

// cookies writes the session cookies of one browser.
type cookies struct {
	insecure bool
	slots    int
}

func (c cookies) set(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   !c.insecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   !c.insecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setSlot stores a session token in its slot and makes that slot active.
func (c cookies) setSlot(w http.ResponseWriter, slot int, token string, expires time.Time) {
	c.set(w, slotCookieName(slot), token, expires)
	c.setActive(w, slot, expires)
}

func (c cookies) setActive(w http.ResponseWriter, slot int, expires time.Time) {
	c.set(w, activeCookieName, strconv.Itoa(slot), expires)
}

// slotTokens returns the session token of every slot cookie in range.
func (c cookies) slotTokens(r *http.Request) map[int]string {
	out := make(map[int]string)
	for _, ck := range r.Cookies() {
		raw, ok := strings.CutPrefix(ck.Name, sessionCookiePrefix)
		if !ok || ck.Value == "" {
			continue
		}
		slot, err := strconv.Atoi(raw)
		if err != nil || slot < 0 || slot >= c.slots {
			continue
		}
		out[slot] = ck.Value
	}
	return out
}

// activeSlot reads the active pointer.
func (c cookies) activeSlot(r *http.Request) (int, bool) {
	ck, err := r.Cookie(activeCookieName)
	if err != nil {
		return 0, false
	}
	slot, err := strconv.Atoi(ck.Value)
	if err != nil || slot < 0 || slot >= c.slots {
		return 0, false
	}
	return slot, true
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
