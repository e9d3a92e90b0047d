package server

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// Client ids end up inside blob storage names.
var idRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func validateID(id string) bool {
	return idRegex.MatchString(id)
}

func validateNoteID(id string) error {
	if strings.TrimSpace(id) == "" {
		return badRequestCode(fmt.Errorf("id is required"), ErrCodeMissingRequired)
	}
	if !validateID(id) {
		return badRequestCode(fmt.Errorf("invalid id %q", id), ErrCodeInvalidID)
	}
	return nil
}

// requireField reports a missing field when value is nil. Empty is accepted
// only when allowEmpty is set.
func requireField(name string, value *string, allowEmpty bool) (string, error) {
	if value == nil {
		return "", badRequestCode(fmt.Errorf("%s is required", name), ErrCodeMissingRequired)
	}
	if !allowEmpty && *value == "" {
		return "", badRequestCode(fmt.Errorf("%s must not be empty", name), ErrCodeMissingRequired)
	}
	return *value, nil
}

// decodePayload decodes base64 ciphertext, accepting padded and unpadded input.
func decodePayload(name, value string) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err == nil {
		return decoded, nil
	}
	decoded, rawErr := base64.RawStdEncoding.DecodeString(trimmed)
	if rawErr == nil {
		return decoded, nil
	}
	return nil, badRequestCode(fmt.Errorf("%s is not valid base64: %w", name, err), ErrCodeInvalidEncoding)
}

func encodePayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
