package cli

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/MichelMeloG/JurChat/model"
)

const (
	keyringService = "jurchat"
	keyringUser    = "session"
)

var errNotLoggedIn = errors.New(`not logged in, run "jurchat login" first`)

func saveSession(session model.Session) error {
	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := keyring.Set(keyringService, keyringUser, string(data)); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func loadSession() (model.Session, error) {
	data, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return model.Session{}, errNotLoggedIn
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("read session: %w", err)
	}

	var session model.Session
	if err := yaml.Unmarshal([]byte(data), &session); err != nil || !session.Valid() {
		return model.Session{}, errNotLoggedIn
	}
	return session, nil
}

// clearSession removes the stored session. It reports whether one existed.
func clearSession() (bool, error) {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return true, nil
}
