package ecourts

import (
	"context"
	"time"

	"ecourts-backend/internal/assert"
	"ecourts-backend/internal/portal"
	"ecourts-backend/internal/telemetry"
	"ecourts-backend/lib/htmlutil"
)

const report_extractor_read_region = "extractor.read-region"

// Extractor reads the case tables off a result page.
type Extractor struct {
	sel      portal.Selectors
	timeouts portal.Timeouts
	tel      telemetry.API
}

func NewExtractor(sel portal.Selectors, timeouts portal.Timeouts, tel telemetry.API) Extractor {
	assert.NotNil(tel)
	return Extractor{
		sel:      sel,
		timeouts: timeouts,
		tel:      telemetry.NewScopedAPI("ecourts", tel),
	}
}

// ExtractCase reads every region of the result page. Each region is optional, one that
// never appears comes out empty. The raw history rows are returned separately so they
// can be filtered against a cutoff.
func (e Extractor) ExtractCase(ctx context.Context, page portal.Page) (CaseRecord, [][]string) {
	record := CaseRecord{
		CaseDetails: labelValuePairs(e.rows(ctx, page, e.sel.CaseDetails, e.timeouts.CaseDetails)),
		CaseStatus:  nonEmpty(e.rows(ctx, page, e.sel.CaseStatus, e.timeouts.Table)),
		Petitioners: nonEmpty(e.rows(ctx, page, e.sel.Petitioners, e.timeouts.Table)),
		Respondents: nonEmpty(e.rows(ctx, page, e.sel.Respondents, e.timeouts.Table)),
		Acts:        nonEmpty(e.rows(ctx, page, e.sel.Acts, e.timeouts.Table)),
		FIRDetails:  firPairs(e.rows(ctx, page, e.sel.FIRDetails, e.timeouts.FIRDetails)),
	}
	if e.sel.Transfers != "" {
		record.Transfers = nonEmpty(e.rows(ctx, page, e.sel.Transfers, e.timeouts.FIRDetails))
	}
	history := e.rows(ctx, page, e.sel.History, e.timeouts.Table)
	return record, history
}

func (e Extractor) rows(ctx context.Context, page portal.Page, selector string, timeout time.Duration) [][]string {
	err := page.WaitVisible(ctx, selector, timeout)
	if err != nil {
		e.tel.ReportDebug("region absent", selector)
		return nil
	}
	html, err := page.HTML(ctx, selector)
	if err != nil {
		e.tel.ReportWarning(report_extractor_read_region, err, selector)
		return nil
	}
	rows, err := htmlutil.TableRows(html)
	if err != nil {
		e.tel.ReportWarning(report_extractor_read_region, err, selector)
		return nil
	}
	return rows
}

func nonEmpty(rows [][]string) [][]string {
	out := [][]string{}
	for _, row := range rows {
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out
}

// labelValuePairs reads rows laid out as label, value, label, value...
func labelValuePairs(rows [][]string) map[string]string {
	out := map[string]string{}
	for _, row := range rows {
		for i := 0; i+1 < len(row); i += 2 {
			if row[i] == "" {
				continue
			}
			out[row[i]] = row[i+1]
		}
	}
	return out
}

func firPairs(rows [][]string) map[string]string {
	out := map[string]string{}
	for _, row := range rows {
		if len(row) < 2 || row[0] == "" {
			continue
		}
		out[row[0]] = row[1]
	}
	return out
}
