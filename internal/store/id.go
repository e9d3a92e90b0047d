package store

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"time"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLength = 6
	idMaxAttempts  = 20
)

// GenerateNoteID returns `<base36 unix-ms>-<6 random base36 chars>`.
// It retries on collisions using the provided exists function.
func GenerateNoteID(now time.Time, exists func(string) (bool, error)) (string, error) {
	prefix := strconv.FormatInt(now.UnixMilli(), 36)

	for i := 0; i < idMaxAttempts; i++ {
		suffix, err := randomBase36(idSuffixLength)
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s-%s", prefix, suffix)
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id")
}

func randomBase36(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(out), nil
}
