package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var errIDOrKey = errors.New("give either an id argument or a lookup flag")

// checkIDOrKey accepts exactly one of a positional id and a natural key flag.
func checkIDOrKey(args []string, key string) error {
	if (len(args) == 1) == (key != "") {
		return errIDOrKey
	}

	return nil
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}

	return id, nil
}
