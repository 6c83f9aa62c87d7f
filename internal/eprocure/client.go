// Package eprocure scrapes the CPPP tender listing at eprocure.gov.in.
//
// The listing page gates access behind hidden form tokens: a plain GET
// yields a form whose hidden inputs must be replayed verbatim (plus the
// submit fields for the chosen filter link) on the same cookie session, or
// the server rejects the request. Requests also need a browser user agent
// and matching Origin/Referer headers.
package eprocure

import (
	"bytes"
	"context"
	"net/http/cookiejar"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tender-intel/internal/config"
)

// Fatal scrape failures. The pipeline aborts the run on either.
var (
	ErrUpstreamUnavailable = eris.New("eprocure: upstream unavailable")
	ErrTableNotFound       = eris.New("eprocure: tender table not found")
)

const (
	listingFormID = "ListTendersbyDate"
	// Submit fields replicating a click on the "Closing within 7 days" link.
	submitModeField = "submitmode"
	submitModeValue = "submit"
	submitNameField = "submitname"
	submitNameValue = "LinkSubmit_0"
)

// FormState is the hidden-field capture from the listing form, replayed on
// submission. Built once per run and never persisted.
type FormState map[string]string

// Client holds one scrape session against the listing service. A Client is
// owned by a single run; cookies and tokens are never reused across runs.
type Client struct {
	http *resty.Client
	cfg  config.ScrapeConfig
}

// NewClient creates a session-scoped listing client.
func NewClient(cfg config.ScrapeConfig) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, eris.Wrap(err, "eprocure: create cookie jar")
	}

	hc := resty.New()
	hc.SetCookieJar(jar)
	hc.SetTimeout(time.Duration(cfg.TimeoutSecs) * time.Second)
	hc.SetHeader("User-Agent", cfg.UserAgent)
	hc.SetHeader("Origin", "https://eprocure.gov.in")
	hc.SetHeader("Referer", cfg.ListingURL)

	return &Client{http: hc, cfg: cfg}, nil
}

// Bootstrap fetches the listing page, keeps any server-issued cookies on
// the session, and captures every hidden input inside the listing form.
func (c *Client) Bootstrap(ctx context.Context) (FormState, error) {
	res, err := c.http.R().SetContext(ctx).Get(c.cfg.ListingURL)
	if err != nil {
		return nil, eris.Wrap(err, "eprocure: fetch listing page")
	}
	if res.IsError() {
		return nil, eris.Wrapf(ErrUpstreamUnavailable, "listing page returned %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, eris.Wrap(err, "eprocure: parse listing page")
	}

	form := doc.Find("form#" + listingFormID)
	if form.Length() == 0 {
		return nil, eris.Wrap(ErrUpstreamUnavailable, "form "+listingFormID+" not found")
	}

	state := FormState{}
	form.Find("input[type=hidden]").Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		state[name] = sel.AttrOr("value", "")
	})

	zap.L().Debug("eprocure: session bootstrapped", zap.Int("hidden_fields", len(state)))
	return state, nil
}

// FetchListing replays the captured form state with the submit fields set
// to select tenders closing within 7 days, and returns the parsed response
// document.
func (c *Client) FetchListing(ctx context.Context, state FormState) (*goquery.Document, error) {
	form := make(map[string]string, len(state)+2)
	for k, v := range state {
		form[k] = v
	}
	form[submitModeField] = submitModeValue
	form[submitNameField] = submitNameValue

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(c.cfg.SubmitURL)
	if err != nil {
		return nil, eris.Wrap(err, "eprocure: submit listing form")
	}
	if res.IsError() {
		return nil, eris.Wrapf(ErrUpstreamUnavailable, "listing submission returned %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, eris.Wrap(err, "eprocure: parse listing response")
	}

	return doc, nil
}
