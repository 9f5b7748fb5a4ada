package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"
)

type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError consumes a non-2xx response and maps it to an
// AppError carrying the downstream message when one can be decoded.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned %d: read body: %w", service, resp.StatusCode, err)
	}

	msg := string(body)
	var de downstreamError
	if json.Unmarshal(body, &de) == nil {
		switch {
		case de.Error != nil && de.Error.Message != "":
			msg = de.Error.Message
		case de.Message != "":
			msg = de.Message
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(service+" resource", msg)
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.InvalidInputf("%s: %s", service, msg)
	case resp.StatusCode >= 500:
		return apperrors.Unavailable(service, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	default:
		return fmt.Errorf("%s returned %d: %s", service, resp.StatusCode, msg)
	}
}
