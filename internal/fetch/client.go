// Package fetch downloads order documents with the cookies of a browser session.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"ecourts-backend/internal/assert"
	"ecourts-backend/internal/telemetry"
	"ecourts-backend/lib/restyutil"
	libtelemetry "ecourts-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	report_client_download = "client.download"
	report_client_inspect  = "client.inspect"
)

var ErrExhausted = errors.New("download attempts exhausted")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

type Options struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the fixed wait between tries.
	Delay   time.Duration
	Timeout time.Duration
	Referer string
	// RequirePDF retries responses whose body is not a PDF document.
	RequirePDF bool
	// Output receives a rendering of every exchange when set.
	Output restyutil.InstrumentOutput
}

func DefaultOptions() Options {
	return Options{
		Attempts:   15,
		Delay:      5 * time.Second,
		Timeout:    60 * time.Second,
		RequirePDF: true,
	}
}

// Result describes a completed download.
type Result struct {
	Bytes int
	// Pages is 0 when the document could not be inspected.
	Pages int
}

type Client struct {
	http *resty.Client
	opts Options
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel)
	assert.Positive(opts.Attempts)
	tel = telemetry.NewScopedAPI("fetch", tel)

	httpClient := resty.New()
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeader("user-agent", defaultUserAgent)
	httpClient.SetHeader("accept", "application/pdf,*/*;q=0.8")
	if opts.Referer != "" {
		httpClient.SetHeader("referer", opts.Referer)
	}
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	httpClient.SetRetryCount(opts.Attempts - 1)
	httpClient.SetRetryWaitTime(opts.Delay)
	httpClient.SetRetryMaxWaitTime(opts.Delay)
	httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		if res.StatusCode() != http.StatusOK {
			return true
		}
		return opts.RequirePDF && !isPDF(res.Body())
	})

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, libtelemetry.Tracer("fetch"), opts.Output)

	return &Client{http: httpClient, opts: opts, tel: tel}
}

func isPDF(body []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(body, "\r\n\t "), []byte("%PDF"))
}

// Download fetches link with the given Cookie header and writes the body to dest.
func (c *Client) Download(ctx context.Context, link, cookieHeader, dest string) (Result, error) {
	req := c.http.R().SetContext(ctx)
	if cookieHeader != "" {
		req.SetHeader("cookie", cookieHeader)
	}

	res, err := req.Get(link)
	if err != nil {
		c.tel.ReportWarning(report_client_download, err, link)
		return Result{}, fmt.Errorf("%w: %w", ErrExhausted, err)
	}
	if res.StatusCode() != http.StatusOK {
		err = fmt.Errorf("%w: last status %s", ErrExhausted, res.Status())
		c.tel.ReportWarning(report_client_download, err, link)
		return Result{}, err
	}
	body := res.Body()
	if c.opts.RequirePDF && !isPDF(body) {
		err = fmt.Errorf("%w: response is not a pdf document", ErrExhausted)
		c.tel.ReportWarning(report_client_download, err, link)
		return Result{}, err
	}

	err = os.WriteFile(dest, body, 0644)
	if err != nil {
		os.Remove(dest)
		return Result{}, fmt.Errorf("write %s: %w", dest, err)
	}

	result := Result{Bytes: len(body)}
	pages, err := api.PageCountFile(dest)
	if err != nil {
		c.tel.ReportDebug("could not inspect document", dest, err)
	} else {
		result.Pages = pages
	}
	return result, nil
}
