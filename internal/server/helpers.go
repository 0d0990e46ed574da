package server

import (
	"fmt"
	"net/http"
	"payment-router/internal/config"
	internalErrors "payment-router/internal/errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	config.DateTimeFormat,
	"2006-01-02T15:04:05",
}

// parseDateTime accepts ISO-8601 timestamps with or without fractional
// seconds. A timestamp without a zone is taken as UTC.
func parseDateTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", internalErrors.ErrInvalidDateTime, value)
}
