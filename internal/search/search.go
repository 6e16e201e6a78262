package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultLead  ResultType = "lead"
	ResultOrder ResultType = "order"
	ResultTray  ResultType = "tray"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	LeadID  string     `json:"leadId"`
	Status  string     `json:"status,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// LeadRecord is the data we index for a lead.
type LeadRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// OrderRecord is the data we index for an order. Orders carry no text of
// their own, so the lead's name and phone ride along.
type OrderRecord struct {
	ID       string `json:"id"`
	LeadID   string `json:"leadId"`
	LeadName string `json:"leadName"`
	Phone    string `json:"phone"`
	Status   string `json:"status"`
}

// TrayRecord is the data we index for a tray.
type TrayRecord struct {
	ID       string `json:"id"`
	OrderID  string `json:"orderId"`
	LeadID   string `json:"leadId"`
	Number   string `json:"number"`
	LeadName string `json:"leadName"`
	Status   string `json:"status"`
}
