package core

import (
	"maps"
	"strings"
)

// Request is a REST call ready to be signed and sent.
// Path and Query together form the request path used in the signature prehash,
// and Body is the exact string sent on the wire.
type Request struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Query   string            `json:"query,omitempty"`
	Body    string            `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// NewRequest creates a request with an upper-cased method.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:  strings.ToUpper(method),
		Path:    path,
		Headers: make(map[string]string),
	}
}

// RequestPath returns path plus encoded query string, without scheme or host.
func (r *Request) RequestPath() string {
	return r.Path + r.Query
}

// SetQuery sets the encoded query string, including its leading '?'.
func (r *Request) SetQuery(query string) *Request {
	r.Query = query
	return r
}

// SetBody sets the serialized body.
func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

func (r *Request) SetHeaders(headers map[string]string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	maps.Copy(r.Headers, headers)
	return r
}
