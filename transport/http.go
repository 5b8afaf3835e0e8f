// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 30 * time.Second

var errNotOpened = errors.New("exchange is not opened")

// defaultHTTPClient is shared by every pooled HTTP exchange so that pooled
// handles also reuse connections.
var defaultHTTPClient = &http.Client{Timeout: DefaultTimeout}

// CleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
// See: https://github.com/golang/go/issues/46071
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// HTTPExchange is an Exchange backed by net/http.
type HTTPExchange struct {
	client *http.Client

	mu     sync.Mutex
	method string
	url    string
	creds  *Credentials
	header http.Header
	hooks  []func(Exchange)
	cancel context.CancelFunc

	status     int
	statusText string
	body       string
	respHeader http.Header
}

// NewHTTPExchange returns an exchange sending through client, or through a
// shared default client when client is nil.
func NewHTTPExchange(client *http.Client) *HTTPExchange {
	if client == nil {
		client = defaultHTTPClient
	}
	return &HTTPExchange{client: client, header: make(http.Header)}
}

func (x *HTTPExchange) Open(method, url string, creds *Credentials) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.method = method
	x.url = url
	x.creds = creds
	x.header = make(http.Header)
	x.clearResponse()
}

func (x *HTTPExchange) SetHeader(name, value string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.url == "" {
		return errNotOpened
	}
	x.header.Set(name, value)
	return nil
}

func (x *HTTPExchange) OnComplete(hook func(Exchange)) {
	x.mu.Lock()
	x.hooks = append(x.hooks, hook)
	x.mu.Unlock()
}

// Send posts body and reads the whole response, transcoding it to UTF-8
// according to the Content-Type charset.
func (x *HTTPExchange) Send(ctx context.Context, body []byte) error {
	x.mu.Lock()
	if x.url == "" {
		x.mu.Unlock()
		return &Error{Op: "open", Err: errNotOpened}
	}
	ctx, cancel := context.WithCancel(ctx)
	x.cancel = cancel
	method, url, creds, header := x.method, x.url, x.creds, x.header.Clone()
	x.mu.Unlock()
	defer cancel()
	defer x.complete()

	request, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return &Error{Op: "open", URL: url, Err: err}
	}
	request.Header = header
	if creds != nil {
		request.SetBasicAuth(creds.User, creds.Password)
	}

	resp, err := x.client.Do(request)
	if err != nil {
		return &Error{Op: "send", URL: url, Err: err}
	}
	defer CleanlyCloseBody(resp.Body)

	var r io.Reader = resp.Body
	if cr, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type")); err == nil {
		r = cr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return &Error{Op: "read", URL: url, Err: err}
	}

	x.mu.Lock()
	x.status = resp.StatusCode
	x.statusText = strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
	x.body = string(data)
	x.respHeader = resp.Header
	x.mu.Unlock()
	return nil
}

func (x *HTTPExchange) complete() {
	x.mu.Lock()
	hooks := x.hooks
	x.mu.Unlock()
	for _, hook := range hooks {
		hook(x)
	}
}

func (x *HTTPExchange) Status() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.status
}

func (x *HTTPExchange) StatusText() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.statusText
}

func (x *HTTPExchange) ResponseText() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.body
}

func (x *HTTPExchange) Header(name string) string {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.respHeader == nil {
		return ""
	}
	return x.respHeader.Get(name)
}

func (x *HTTPExchange) Abort() {
	x.mu.Lock()
	cancel := x.cancel
	x.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (x *HTTPExchange) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.method, x.url, x.creds = "", "", nil
	x.header = make(http.Header)
	x.hooks = nil
	x.cancel = nil
	x.clearResponse()
}

func (x *HTTPExchange) clearResponse() {
	x.status = 0
	x.statusText = ""
	x.body = ""
	x.respHeader = nil
}
