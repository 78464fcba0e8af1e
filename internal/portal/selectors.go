package portal

import (
	"fmt"
	"time"
)

const DefaultBaseURL = "https://services.ecourts.gov.in/ecourtindia_v6/"

// Selectors holds every portal specific selector used while acquiring a case.
// Markup changes on the portal should only need a change here.
type Selectors struct {
	CaseIDInput   string `json:"case_id_input"`
	CaptchaImage  string `json:"captcha_image"`
	CaptchaInput  string `json:"captcha_input"`
	SubmitButton  string `json:"submit_button"`
	ValidationBox string `json:"validation_box"`
	ErrorAlert    string `json:"error_alert"`
	// script that dismisses the validation/session alert
	DismissValidation string `json:"dismiss_validation"`
	MessageSpans      string `json:"message_spans"`

	CaseDetails string `json:"case_details"`
	CaseStatus  string `json:"case_status"`
	Petitioners string `json:"petitioners"`
	Respondents string `json:"respondents"`
	Acts        string `json:"acts"`
	FIRDetails  string `json:"fir_details"`
	History     string `json:"history"`
	Transfers   string `json:"transfers"`

	Orders      string `json:"orders"`
	FinalOrders string `json:"final_orders"`

	OrderPanel         string `json:"order_panel"`
	OrderDocument      string `json:"order_document"`
	OrderDocumentAttr  string `json:"order_document_attr"`
	OpenModal          string `json:"open_modal"`
	OpenModalCloseLink string `json:"open_modal_close_link"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		CaseIDInput:       "#cino",
		CaptchaImage:      "#captcha_image",
		CaptchaInput:      "#fcaptcha_code",
		SubmitButton:      "#searchbtn",
		ValidationBox:     "#validateError",
		ErrorAlert:        ".alert.alert-danger-cust",
		DismissValidation: `closeModel({modal_id:"validateError"})`,
		MessageSpans:      "span",

		CaseDetails: "table.case_details_table",
		CaseStatus:  "table.case_status_table",
		Petitioners: "table.Petitioner_Advocate_table",
		Respondents: "table.Respondent_Advocate_table",
		Acts:        "table.acts_table",
		FIRDetails:  "table.FIR_details_table",
		History:     "table.history_table",
		Transfers:   "table.transfer_table",

		Orders:      ".order_table",
		FinalOrders: "#history_cnr table.order_table:last-of-type",

		OrderPanel:         "#modal_order_body",
		OrderDocument:      "#modal_order_body object",
		OrderDocumentAttr:  "data",
		OpenModal:          ".modal.fade.show",
		OpenModalCloseLink: ".modal.fade.show .btn-close",
	}
}

// OrderLink is the reveal link of the order on the given 1-based data row of an order table.
// The header occupies the first row.
func OrderLink(table string, row int) string {
	return fmt.Sprintf("%s tr:nth-child(%d) td:nth-child(3) a", table, row+1)
}

// Timeouts bounds every wait on the portal.
type Timeouts struct {
	Navigation   time.Duration
	QueryForm    time.Duration
	ResultSettle time.Duration
	CaseDetails  time.Duration
	Table        time.Duration
	FIRDetails   time.Duration
	OrderTable   time.Duration
	OrderPanel   time.Duration
	PanelSettle  time.Duration
	PanelClose   time.Duration
	OrderPacing  time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigation:   60 * time.Second,
		QueryForm:    80 * time.Second,
		ResultSettle: time.Second,
		CaseDetails:  4 * time.Second,
		Table:        4 * time.Second,
		FIRDetails:   900 * time.Millisecond,
		OrderTable:   3 * time.Second,
		OrderPanel:   40 * time.Second,
		PanelSettle:  3 * time.Second,
		PanelClose:   10 * time.Second,
		OrderPacing:  4 * time.Second,
	}
}
