package auth

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const cookieName = "padelbook_session"

// Sessions grants and checks the coach capability. There are no user
// accounts: one shared password unlocks a signed session cookie.
type Sessions struct {
	sc            *securecookie.SecureCookie
	coachPassword string
}

type session struct {
	Coach bool
}

func NewSessions(hashKey, blockKey []byte, coachPassword string) *Sessions {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int((14 * 24 * time.Hour).Seconds()))
	return &Sessions{sc: sc, coachPassword: coachPassword}
}

func (s *Sessions) CheckPassword(pw string) bool {
	return subtle.ConstantTimeCompare([]byte(pw), []byte(s.coachPassword)) == 1
}

func (s *Sessions) SetCoach(w http.ResponseWriter, r *http.Request) error {
	encoded, err := s.sc.Encode(cookieName, session{Coach: true})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil, // ok for local http; secure in https
		MaxAge:   int((14 * 24 * time.Hour).Seconds()),
	})
	return nil
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Sessions) IsCoach(r *http.Request) bool {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return false
	}
	var sess session
	if err := s.sc.Decode(cookieName, c.Value, &sess); err != nil {
		return false
	}
	return sess.Coach
}
