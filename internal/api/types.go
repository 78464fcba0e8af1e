package api

import (
	"ecourts-backend/internal/pipeline"
)

type AcquireRequest struct {
	CnrNumber string `json:"cnr_number"`
	// NextHearingDate is the cutoff, ex. "5th March 2025".
	NextHearingDate string `json:"next_hearing_date"`
}

type OrderLink struct {
	OrderDate string `json:"order_date"`
	S3URL     string `json:"s3_url"`
	Table     string `json:"table"`
	Pages     int    `json:"pages,omitempty"`
}

type CaseResponse struct {
	// Status is "complete" for a found case, otherwise the outcome of the acquisition.
	Status                string            `json:"status"`
	CnrNumber             string            `json:"cnr_number"`
	CaseDetails           map[string]string `json:"case_details,omitempty"`
	CaseStatus            [][]string        `json:"case_status,omitempty"`
	PetitionerAndAdvocate [][]string        `json:"petitioner_and_advocate,omitempty"`
	RespondentAndAdvocate [][]string        `json:"respondent_and_advocate,omitempty"`
	Acts                  [][]string        `json:"acts,omitempty"`
	FIRDetails            map[string]string `json:"fir_details,omitempty"`
	CaseHistory           [][]string        `json:"case_history,omitempty"`
	S3Links               []OrderLink       `json:"s3_links"`
	Attempts              int               `json:"attempts"`
	Message               string            `json:"message,omitempty"`
	Cached                bool              `json:"cached,omitempty"`
}

func statusOf(outcome pipeline.Outcome) string {
	if outcome == pipeline.Success {
		return "complete"
	}
	return outcome.String()
}

func newCaseResponse(query pipeline.CaseQuery, result pipeline.Result) CaseResponse {
	res := CaseResponse{
		Status:    statusOf(result.Outcome),
		CnrNumber: query.CaseID(),
		S3Links:   []OrderLink{},
		Attempts:  result.Attempts,
		Message:   result.Reason,
	}
	if result.Outcome != pipeline.Success {
		return res
	}

	record := result.Record
	res.CaseDetails = record.CaseDetails
	res.CaseStatus = record.CaseStatus
	res.PetitionerAndAdvocate = record.Petitioners
	res.RespondentAndAdvocate = record.Respondents
	res.Acts = record.Acts
	res.FIRDetails = record.FIRDetails
	res.CaseHistory = make([][]string, 0, len(record.History))
	for _, entry := range record.History {
		res.CaseHistory = append(res.CaseHistory, entry.Cells)
	}
	for _, order := range result.Orders {
		res.S3Links = append(res.S3Links, OrderLink{
			OrderDate: order.OrderDate.String(),
			S3URL:     order.StorageReference,
			Table:     order.Table,
			Pages:     order.Pages,
		})
	}
	return res
}
