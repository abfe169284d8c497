package client

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Envelope is the upstream response wrapper common to all API-Football
// v3 endpoints. Response holds the endpoint-specific payload undecoded;
// callers pick their own shape via Decode.
type Envelope struct {
	Get        string          `json:"get"`
	Parameters ParameterMap    `json:"parameters"`
	Errors     ErrorList       `json:"errors"`
	Results    int             `json:"results"`
	Paging     Paging          `json:"paging"`
	Response   json.RawMessage `json:"response"`
}

// Decode unmarshals the endpoint-specific payload into v.
func (e *Envelope) Decode(v any) error {
	return json.Unmarshal(e.Response, v)
}

// Paging reports the page position for endpoints that paginate.
type Paging struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ParameterMap echoes the request's query parameters. The upstream
// encodes an empty set as [] instead of {}, so decoding tolerates both.
type ParameterMap map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (p *ParameterMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		*p = nil
		return nil
	}

	var raw map[string]string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*p = raw
	return nil
}

// FieldError is one application-level error from the envelope, keyed by
// the parameter or concern it refers to.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorList normalizes the envelope's errors field. The upstream
// encodes "no errors" as [] and errors as an object {code: message};
// both decode into a slice sorted by code.
type ErrorList []FieldError

// UnmarshalJSON implements json.Unmarshaler.
func (e *ErrorList) UnmarshalJSON(data []byte) error {
	*e = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}

	if trimmed[0] == '[' {
		var raw []map[string]string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		for _, m := range raw {
			e.appendSorted(m)
		}
		return nil
	}

	var raw map[string]string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	e.appendSorted(raw)
	return nil
}

func (e *ErrorList) appendSorted(m map[string]string) {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		*e = append(*e, FieldError{Code: code, Message: m[code]})
	}
}

// String renders the list for error messages and logs.
func (e ErrorList) String() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Code + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}
