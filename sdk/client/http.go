package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/faciam-dev/crmfields/internal/customfield/audit"
	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/internal/export"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

type httpClient struct {
	base string
	http *resty.Client
}

type Option func(*httpClient)

// WithToken sets the Authorization token
func WithToken(tok string) Option {
	return func(c *httpClient) {
		if tok != "" {
			c.http.SetAuthToken(tok)
		}
	}
}

// WithCookieToken uses the value of the named cookie as bearer token. It
// does nothing when the cookie is absent.
func WithCookieToken(cookies []*http.Cookie, name string) Option {
	return func(c *httpClient) {
		for _, ck := range cookies {
			if ck.Name == name && ck.Value != "" {
				c.http.SetAuthToken(ck.Value)
				return
			}
		}
	}
}

// WithRetry retries failed requests count times.
func WithRetry(count int, wait time.Duration) Option {
	return func(c *httpClient) {
		c.http.SetRetryCount(count).SetRetryWaitTime(wait)
	}
}

// WithTransport replaces the HTTP transport, e.g. to trust a private CA.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *httpClient) {
		c.http.SetTransport(rt)
	}
}

// NewHTTP returns a new Client for the given base URL.
func NewHTTP(base string, opts ...Option) Client {
	c := &httpClient{base: strings.TrimRight(base, "/"), http: resty.New()}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) fieldsURL(et customfield.EntityType) string {
	return c.base + "/v1/fields/" + url.PathEscape(string(et))
}

func (c *httpClient) Fields(ctx context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error) {
	var out []customfield.FieldDefinition
	resp, err := c.http.R().SetContext(ctx).SetQueryParam("all", "true").SetResult(&out).Get(c.fieldsURL(et))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, restyErr(resp)
	}
	return out, nil
}

func fieldBody(def customfield.FieldDefinition) map[string]any {
	body := map[string]any{
		"fieldLabel": def.FieldLabel,
		"fieldType":  string(def.FieldType),
	}
	if def.FieldName != "" {
		body["fieldName"] = def.FieldName
	}
	if def.IsRequired {
		body["isRequired"] = true
	}
	if def.IsHidden {
		body["isHidden"] = true
	}
	if len(def.Options) > 0 {
		body["options"] = def.Options
	}
	if def.Placeholder != "" {
		body["placeholder"] = def.Placeholder
	}
	if def.DefaultValue != "" {
		body["defaultValue"] = def.DefaultValue
	}
	if def.SortOrder != 0 {
		body["sortOrder"] = def.SortOrder
	}
	if def.Validator != "" {
		body["validator"] = def.Validator
	}
	if len(def.Aliases) > 0 {
		body["aliases"] = def.Aliases
	}
	return body
}

func (c *httpClient) CreateField(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	var out customfield.FieldDefinition
	resp, err := c.http.R().SetContext(ctx).SetBody(fieldBody(def)).SetResult(&out).Post(c.fieldsURL(def.EntityType))
	if err != nil {
		return out, err
	}
	if resp.IsError() {
		return out, restyErr(resp)
	}
	return out, nil
}

func (c *httpClient) UpdateField(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	var out customfield.FieldDefinition
	u := c.fieldsURL(def.EntityType) + "/" + strconv.FormatInt(def.ID, 10)
	resp, err := c.http.R().SetContext(ctx).SetBody(fieldBody(def)).SetResult(&out).Put(u)
	if err != nil {
		return out, err
	}
	if resp.IsError() {
		return out, restyErr(resp)
	}
	return out, nil
}

func (c *httpClient) DeleteField(ctx context.Context, et customfield.EntityType, id int64) error {
	resp, err := c.http.R().SetContext(ctx).Delete(c.fieldsURL(et) + "/" + strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return restyErr(resp)
	}
	return nil
}

func (c *httpClient) NextFieldName(ctx context.Context, et customfield.EntityType) (string, error) {
	var out struct {
		FieldName string `json:"fieldName"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get(c.fieldsURL(et) + "/next-name")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", restyErr(resp)
	}
	return out.FieldName, nil
}

func (c *httpClient) History(ctx context.Context, id int64) ([]audit.Entry, error) {
	var out []audit.Entry
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get(c.base + "/v1/field-history/" + strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, restyErr(resp)
	}
	return out, nil
}

// Submit posts a packaged record to the record API.
func (c *httpClient) Submit(ctx context.Context, et customfield.EntityType, p packager.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	u := c.base + "/v1/records/" + url.PathEscape(string(et)) + "/payload"
	resp, err := c.http.R().SetContext(ctx).SetHeader("Content-Type", "application/json").SetBody(body).Post(u)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return restyErr(resp)
	}
	return nil
}

func (c *httpClient) Export(ctx context.Context, et customfield.EntityType, format export.Format) (string, []byte, error) {
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("format", string(format)).
		Get(c.base + "/v1/exports/" + url.PathEscape(string(et)))
	if err != nil {
		return "", nil, err
	}
	if resp.IsError() {
		return "", nil, restyErr(resp)
	}
	name := export.FileName(et.RecordType(), format, time.Now())
	if _, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, resp.Body(), nil
}

func (c *httpClient) Mode() string { return "http" }

// Identity is the caller as seen by the API.
type Identity struct {
	Subject      string          `json:"subject"`
	Roles        []string        `json:"roles"`
	Capabilities map[string]bool `json:"capabilities"`
}

// WhoAmI asks the API at base who the configured token belongs to. It is
// used to verify credentials before saving them.
func WhoAmI(ctx context.Context, base string, opts ...Option) (Identity, error) {
	c := NewHTTP(base, opts...).(*httpClient)
	var out Identity
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get(c.base + "/v1/auth/me")
	if err != nil {
		return out, err
	}
	if resp.IsError() {
		return out, restyErr(resp)
	}
	return out, nil
}

// ErrUnauthorized is wrapped by errors of 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// restyErr extracts a message from the response body, trying detail,
// message and error keys and the first entry of an errors list before
// falling back to the HTTP status.
func restyErr(resp *resty.Response) error {
	msg := errorMessage(resp.Body())
	if msg == "" {
		msg = resp.Status()
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	}
	return fmt.Errorf("%d: %s", resp.StatusCode(), msg)
}

func errorMessage(body []byte) string {
	var m map[string]any
	if json.Unmarshal(body, &m) != nil {
		return strings.TrimSpace(string(body))
	}
	msg := ""
	for _, k := range []string{"detail", "message", "error"} {
		if s, ok := m[k].(string); ok && s != "" {
			msg = s
			break
		}
	}
	if errs, ok := m["errors"].([]any); ok && len(errs) > 0 {
		if e, ok := errs[0].(map[string]any); ok {
			if s, ok := e["message"].(string); ok && s != "" {
				if loc, ok := e["location"].(string); ok && loc != "" {
					s = loc + ": " + s
				}
				if msg == "" {
					return s
				}
				return msg + " (" + s + ")"
			}
		}
	}
	return msg
}
