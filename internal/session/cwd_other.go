//go:build !linux && !darwin

package session

import "errors"

func processCwd(int) (string, error) {
	return "", errors.New("cwd introspection is not supported on this platform")
}
