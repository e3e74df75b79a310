package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Aging and payment-status buckets assigned to every debt record. Open
// debts (remaining > 0) get an aging bucket, closed debts get a
// paid-on-time / paid-late verdict.
const (
	BucketUnder30    = "<30d"
	Bucket30To60     = "30-60d"
	Bucket60To90     = "60-90d"
	BucketProblem    = ">90d-problem"
	BucketPaidOnTime = "paid-on-time"
	BucketPaidLate   = "paid-late"
)

// Amount decodes a currency value that the upstream API returns either as a
// JSON number or as a quoted string. Null and empty values decode to 0.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

type ShopRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreatorRef struct {
	Name string `json:"name"`
}

// DebtRecord is one debt instance as received from the upstream feed.
type DebtRecord struct {
	ID            string       `json:"id"`
	OrderNumber   string       `json:"order_number"`
	Shop          *ShopRef     `json:"shop"`
	Customer      *CustomerRef `json:"customer"`
	CreatedBy     *CreatorRef  `json:"created_by"`
	Amount        Amount       `json:"amount"`
	PaidAmount    Amount       `json:"paid_amount"`
	CreatedAt     time.Time    `json:"created_at"`
	RepaymentDate *time.Time   `json:"repayment_date"`
	Status        string       `json:"status"`
	ContactPhones []string     `json:"contact_phones"`
}

// Remaining may be negative when upstream reports paid > total; kept as-is.
func (d DebtRecord) Remaining() float64 {
	return float64(d.Amount) - float64(d.PaidAmount)
}

// DetailedDebt is the per-record snapshot entry.
type DetailedDebt struct {
	DebtID          string  `json:"debt_id"`
	CreatedBy       string  `json:"created_by"`
	OrderNumber     string  `json:"order_number"`
	ShopName        string  `json:"shop_name"`
	CustomerName    string  `json:"customer_name"`
	CustomerID      string  `json:"customer_id"`
	TotalAmount     float64 `json:"total_amount"`
	PaidAmount      float64 `json:"paid_amount"`
	RemainingAmount float64 `json:"remaining_amount"`
	Phones          string  `json:"phones"`
	Status          string  `json:"status"`
	CreatedDate     string  `json:"created_date"`
	RepaymentDate   string  `json:"repayment_date"`
	AgingBucket     string  `json:"aging_bucket"`
	DaysPassed      *int    `json:"days_passed"`
}

// CustomerSummary is the per-customer snapshot entry. Only customers whose
// aggregated remaining is positive make it into the summary snapshot.
type CustomerSummary struct {
	CustomerID      string  `json:"customer_id"`
	CustomerName    string  `json:"customer_name"`
	CreatedBy       string  `json:"created_by"`
	TotalAmount     float64 `json:"total_amount"`
	PaidAmount      float64 `json:"paid_amount"`
	RemainingAmount float64 `json:"remaining_amount"`
	Phones          string  `json:"phones"`
	NotesCount      int     `json:"notes_count"`
}

var statusLabels = map[string]string{
	"unpaid":       "Unpaid",
	"partial_paid": "Partially paid",
	"paid":         "Paid",
	"fully_paid":   "Fully paid",
	"overdue":      "Overdue",
}

// StatusLabel maps an upstream status code to its display label. Unknown
// codes pass through untouched.
func StatusLabel(code string) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return code
}
