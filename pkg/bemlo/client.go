package bemlo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"github.com/vacwatch/vacwatch/internal/utils"
	"github.com/vacwatch/vacwatch/pkg/auth"
	"github.com/vacwatch/vacwatch/pkg/whttp"
)

const (
	DefaultGraphQLURL = "https://api.bemlo.ai/graphql"

	appOrigin  = "https://app.bemlo.com"
	appReferer = "https://app.bemlo.com/"
)

// Client issues authenticated GraphQL operations. Tokens come from the
// Session; a single forced refresh happens on an authorization failure.
type Client struct {
	GraphQLURL string

	session *auth.Session
	client  *retryablehttp.Client
}

// NewClient builds a client against the production GraphQL endpoint.
func NewClient(session *auth.Session) *Client {
	return &Client{
		GraphQLURL: DefaultGraphQLURL,
		session:    session,
		client:     whttp.NewClient(0),
	}
}

// Execute runs one GraphQL operation and returns the data subtree.
// On a 401 it forces a token refresh and retries the same operation exactly
// once; a second 401 surfaces as an AuthError, so there is no retry loop.
func (c *Client) Execute(ctx context.Context, operationName, query string, variables map[string]interface{}) (gjson.Result, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"operationName": operationName,
		"query":         query,
		"variables":     variables,
	})
	if err != nil {
		return gjson.Result{}, err
	}

	for attempt := 0; ; attempt++ {
		token, err := c.session.ValidToken(ctx)
		if err != nil {
			return gjson.Result{}, err
		}

		res, err := whttp.SendHTTPRequest(&whttp.WHTTPReq{
			Method: "POST",
			URL:    c.GraphQLURL,
			Body:   string(payload),
			Headers: []whttp.WHTTPHeader{
				{Name: "Content-Type", Value: "application/json"},
				{Name: "Authorization", Value: "Bearer " + token},
				{Name: "Origin", Value: appOrigin},
				{Name: "Referer", Value: appReferer},
				{Name: "st-auth-mode", Value: "header"},
			},
		}, c.client)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("%s request failed: %w", operationName, err)
		}

		if res.StatusCode == http.StatusUnauthorized {
			if attempt > 0 {
				return gjson.Result{}, &auth.AuthError{Op: operationName, Status: res.StatusCode, Msg: "authorization failed after token refresh"}
			}
			utils.Log.Debugf("Got 401 on %s, refreshing token", operationName)
			if _, err := c.session.Refresh(ctx); err != nil {
				return gjson.Result{}, err
			}
			continue
		}

		if res.StatusCode != http.StatusOK {
			return gjson.Result{}, &TransportError{Status: res.StatusCode, Title: res.HTTPTitle, Body: res.BodyString}
		}

		if errs := gjson.Get(res.BodyString, "errors"); errs.Exists() && errs.IsArray() {
			var msgs []string
			errs.ForEach(func(_, e gjson.Result) bool {
				if m := e.Get("message").String(); m != "" {
					msgs = append(msgs, m)
				} else {
					msgs = append(msgs, e.Raw)
				}
				return true
			})
			return gjson.Result{}, &RemoteQueryError{Messages: msgs}
		}

		return gjson.Get(res.BodyString, "data"), nil
	}
}

// FetchDetail retrieves the full record for one vacancy id, including the
// nested schedule, requirement and pricing rows.
func (c *Client) FetchDetail(ctx context.Context, id string) (*VacancyDetail, error) {
	data, err := c.Execute(ctx, "VacancyDetail", vacancyDetailQuery, map[string]interface{}{
		"id": id,
	})
	if err != nil {
		return nil, err
	}

	node := data.Get("vacancy")
	if !node.Exists() || node.Type == gjson.Null {
		return nil, fmt.Errorf("vacancy %s not found", id)
	}

	return ParseVacancyDetail(node), nil
}
