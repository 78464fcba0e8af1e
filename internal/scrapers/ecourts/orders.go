package ecourts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ecourts-backend/internal/assert"
	"ecourts-backend/internal/casedate"
	"ecourts-backend/internal/fetch"
	"ecourts-backend/internal/portal"
	"ecourts-backend/internal/storage"
	"ecourts-backend/internal/telemetry"
	"ecourts-backend/lib/htmlutil"

	"golang.org/x/time/rate"
)

const (
	report_order_retriever_read_table   = "order-retriever.read-table"
	report_order_retriever_parse_date   = "order-retriever.parse-date"
	report_order_retriever_reveal_order = "order-retriever.reveal-order"
	report_order_retriever_download     = "order-retriever.download"
	report_order_retriever_upload       = "order-retriever.upload"
	report_order_retriever_close_panel  = "order-retriever.close-panel"
	report_order_retriever_stored       = "order-retriever.stored"
)

// note: fault injection point
type Downloader interface {
	Download(ctx context.Context, link, cookieHeader, dest string) (fetch.Result, error)
}

const (
	LiveOrders  = "order"
	FinalOrders = "finalOrder"
)

// OrderTables returns the order tables in the order they are retrieved.
func OrderTables(sel portal.Selectors) []OrderTable {
	return []OrderTable{
		{Tag: LiveOrders, Selector: sel.Orders},
		{Tag: FinalOrders, Selector: sel.FinalOrders},
	}
}

type RetrieverOptions struct {
	Selectors  portal.Selectors
	Timeouts   portal.Timeouts
	BaseURL    string
	Downloader Downloader
	Uploader   storage.Uploader
}

// OrderRetriever downloads the orders listed on a result page and stores them.
type OrderRetriever struct {
	sel        portal.Selectors
	timeouts   portal.Timeouts
	base       *url.URL
	downloader Downloader
	uploader   storage.Uploader
	tel        telemetry.API
}

func NewOrderRetriever(opts RetrieverOptions, tel telemetry.API) (*OrderRetriever, error) {
	assert.NotNil(opts.Downloader)
	assert.NotNil(opts.Uploader)
	assert.NotNil(tel)

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse portal base url: %w", err)
	}

	return &OrderRetriever{
		sel:        opts.Selectors,
		timeouts:   opts.Timeouts,
		base:       base,
		downloader: opts.Downloader,
		uploader:   opts.Uploader,
		tel:        telemetry.NewScopedAPI("ecourts", tel),
	}, nil
}

// newPacer allows one reveal per pacing interval, starting with the first. Each
// retrieval paces its own page, so concurrent acquisitions do not wait on each other.
func (r *OrderRetriever) newPacer() *rate.Limiter {
	limit := rate.Inf
	if r.timeouts.OrderPacing > 0 {
		limit = rate.Every(r.timeouts.OrderPacing)
	}
	pacer := rate.NewLimiter(limit, 1)
	pacer.Allow()
	return pacer
}

type RetrieveRequest struct {
	CaseID string
	Cutoff casedate.Date
	// Dir is where documents are downloaded to before they are stored.
	Dir string
}

// Retrieve stores every order of the table dated on or after the cutoff. A missing
// table yields no documents. Failures of single orders are reported and skipped,
// only a canceled context stops the batch.
func (r *OrderRetriever) Retrieve(ctx context.Context, page portal.Page, table OrderTable, req RetrieveRequest) ([]OrderDocument, error) {
	_, rows, err := r.readTable(ctx, page, table)
	if err != nil || rows == nil {
		return nil, err
	}
	return r.retrieveRows(ctx, page, r.newPacer(), table, req, rows)
}

// RetrieveAll retrieves the live orders, then the final orders. When the page only
// has one order table both selectors match it and it is retrieved once.
func (r *OrderRetriever) RetrieveAll(ctx context.Context, page portal.Page, req RetrieveRequest) ([]OrderDocument, error) {
	pacer := r.newPacer()
	seen := map[string]bool{}
	documents := []OrderDocument{}
	for _, table := range OrderTables(r.sel) {
		tableHTML, rows, err := r.readTable(ctx, page, table)
		if err != nil {
			return documents, err
		}
		if rows == nil {
			continue
		}
		if seen[tableHTML] {
			r.tel.ReportDebug("order table already retrieved", table.Tag)
			continue
		}
		seen[tableHTML] = true

		docs, err := r.retrieveRows(ctx, page, pacer, table, req, rows)
		documents = append(documents, docs...)
		if err != nil {
			return documents, err
		}
	}
	return documents, nil
}

// readTable returns nil rows when the table is absent or unreadable.
func (r *OrderRetriever) readTable(ctx context.Context, page portal.Page, table OrderTable) (string, [][]string, error) {
	err := page.WaitVisible(ctx, table.Selector, r.timeouts.OrderTable)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		r.tel.ReportDebug("order table absent", table.Tag)
		return "", nil, nil
	}
	tableHTML, err := page.HTML(ctx, table.Selector)
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_read_table, err, table.Tag)
		return "", nil, nil
	}
	rows, err := htmlutil.TableRows(tableHTML)
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_read_table, err, table.Tag)
		return "", nil, nil
	}
	if rows == nil {
		rows = [][]string{}
	}
	return tableHTML, rows, nil
}

func (r *OrderRetriever) retrieveRows(
	ctx context.Context,
	page portal.Page,
	pacer *rate.Limiter,
	table OrderTable,
	req RetrieveRequest,
	rows [][]string,
) ([]OrderDocument, error) {
	err := os.MkdirAll(req.Dir, 0777)
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	documents := []OrderDocument{}
	for i, cells := range rows {
		if ctx.Err() != nil {
			return documents, ctx.Err()
		}
		// the header row has no data cells
		if len(cells) < 2 {
			continue
		}
		date, err := casedate.ParsePortal(cells[1])
		if err != nil {
			r.tel.ReportWarning(report_order_retriever_parse_date, err, table.Tag, i)
			continue
		}
		if date.Before(req.Cutoff) {
			continue
		}

		doc, ok := r.retrieveRow(ctx, page, pacer, table, req, i, cells[0], date)
		if ok {
			documents = append(documents, doc)
		}
	}
	return documents, nil
}

func (r *OrderRetriever) retrieveRow(
	ctx context.Context,
	page portal.Page,
	pacer *rate.Limiter,
	table OrderTable,
	req RetrieveRequest,
	row int,
	orderNumber string,
	date casedate.Date,
) (OrderDocument, bool) {
	link := portal.OrderLink(table.Selector, row)
	exists, err := page.Exists(ctx, link)
	if err != nil || !exists {
		r.tel.ReportDebug("order has no reveal link", table.Tag, row)
		return OrderDocument{}, false
	}

	err = pacer.Wait(ctx)
	if err != nil {
		return OrderDocument{}, false
	}
	err = page.Click(ctx, link)
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_reveal_order, err, table.Tag, row)
		return OrderDocument{}, false
	}

	err = page.WaitReady(ctx, r.sel.OrderPanel, r.timeouts.OrderPanel)
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_reveal_order, err, table.Tag, row)
		r.dismissAlert(ctx, page)
		return OrderDocument{}, false
	}
	r.settle(ctx)

	source, ok, err := page.Attribute(ctx, r.sel.OrderDocument, r.sel.OrderDocumentAttr)
	if err != nil || !ok || strings.TrimSpace(source) == "" {
		if err == nil {
			err = errors.New("order panel has no document")
		}
		r.tel.ReportWarning(report_order_retriever_reveal_order, err, table.Tag, row)
		r.dismissAlert(ctx, page)
		return OrderDocument{}, false
	}

	doc, stored := r.store(ctx, page, table, req, row, orderNumber, date, source)
	r.closePanel(ctx, page)
	return doc, stored
}

func (r *OrderRetriever) store(
	ctx context.Context,
	page portal.Page,
	table OrderTable,
	req RetrieveRequest,
	row int,
	orderNumber string,
	date casedate.Date,
	source string,
) (OrderDocument, bool) {
	link, err := r.resolve(source)
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_download, err, source)
		return OrderDocument{}, false
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_download, err, "read cookies")
	}

	fileName := fmt.Sprintf("%s_%s_%s_%d.pdf", req.CaseID, date.String(), table.Tag, row)
	dest := filepath.Join(req.Dir, fileName)
	// the local copy only lives until it is stored
	defer os.Remove(dest)

	result, err := r.downloader.Download(ctx, link, portal.CookieHeader(cookies), dest)
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_download, err, table.Tag, row, link)
		return OrderDocument{}, false
	}
	ref, err := r.uploader.Upload(ctx, dest, fileName)
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_upload, err, fileName)
		return OrderDocument{}, false
	}
	r.tel.ReportCount(report_order_retriever_stored, 1)

	return OrderDocument{
		Table:            table.Tag,
		Row:              row,
		OrderNumber:      orderNumber,
		OrderDate:        date,
		SourceLink:       link,
		FileName:         fileName,
		StorageReference: ref,
		Pages:            result.Pages,
	}, true
}

// resolve makes a document link absolute against the portal base.
func (r *OrderRetriever) resolve(source string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return "", err
	}
	return r.base.ResolveReference(ref).String(), nil
}

func (r *OrderRetriever) settle(ctx context.Context) {
	if r.timeouts.PanelSettle <= 0 {
		return
	}
	timer := time.NewTimer(r.timeouts.PanelSettle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (r *OrderRetriever) closePanel(ctx context.Context, page portal.Page) {
	err := page.WaitVisible(ctx, r.sel.OpenModal, r.timeouts.PanelClose)
	if err == nil {
		err = page.Click(ctx, r.sel.OpenModalCloseLink)
	}
	if err == nil {
		err = page.WaitHidden(ctx, r.sel.OpenModal, r.timeouts.PanelClose)
	}
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_close_panel, err)
		r.dismissAlert(ctx, page)
	}
}

// dismissAlert closes the session alert the portal shows in place of an order panel.
func (r *OrderRetriever) dismissAlert(ctx context.Context, page portal.Page) {
	_, err := DismissValidation(ctx, page, r.sel)
	if err != nil {
		r.tel.ReportWarning(report_order_retriever_close_panel, err)
	}
}
