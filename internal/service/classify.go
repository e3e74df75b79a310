package service

import (
	"sort"
	"strings"
	"time"

	"debtboard/internal/domain"
)

// graceDays is the repayment grace window counted from debt creation.
const graceDays = 30

// midnight drops the time-of-day component.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// classify assigns the aging/payment-status bucket for one record. today must
// already be normalized to midnight. daysPassed is nil for closed records.
func classify(rec domain.DebtRecord, today time.Time) (bucket string, daysPassed *int) {
	if rec.Remaining() > 0 {
		days := int(today.Sub(rec.CreatedAt) / (24 * time.Hour))
		switch {
		case days < 30:
			bucket = domain.BucketUnder30
		case days < 60:
			bucket = domain.Bucket30To60
		case days < 90:
			bucket = domain.Bucket60To90
		default:
			bucket = domain.BucketProblem
		}
		return bucket, &days
	}

	deadline := rec.CreatedAt.AddDate(0, 0, graceDays)
	if rec.RepaymentDate != nil && !rec.RepaymentDate.After(deadline) {
		return domain.BucketPaidOnTime, nil
	}
	return domain.BucketPaidLate, nil
}

// buildDetailed converts one upstream record into its snapshot entry.
func buildDetailed(rec domain.DebtRecord, today time.Time) domain.DetailedDebt {
	bucket, daysPassed := classify(rec, today)

	d := domain.DetailedDebt{
		DebtID:          rec.ID,
		OrderNumber:     rec.OrderNumber,
		TotalAmount:     float64(rec.Amount),
		PaidAmount:      float64(rec.PaidAmount),
		RemainingAmount: rec.Remaining(),
		Phones:          strings.Join(rec.ContactPhones, ", "),
		Status:          domain.StatusLabel(rec.Status),
		CreatedDate:     rec.CreatedAt.Format("2006-01-02"),
		AgingBucket:     bucket,
		DaysPassed:      daysPassed,
	}
	if rec.Shop != nil {
		d.ShopName = rec.Shop.Name
	}
	if rec.Customer != nil {
		d.CustomerID = rec.Customer.ID
		d.CustomerName = rec.Customer.Name
	}
	if rec.CreatedBy != nil {
		d.CreatedBy = rec.CreatedBy.Name
	}
	if rec.RepaymentDate != nil {
		d.RepaymentDate = rec.RepaymentDate.Format("2006-01-02")
	}

	return d
}

type customerAccumulator struct {
	summary domain.CustomerSummary
	phones  map[string]bool
}

// summarize folds records into per-customer aggregates, keeps only customers
// still owing money and orders them by remaining debt, largest first. Records
// without a customer id are skipped. The reduction is order-independent:
// phone sets are sorted before joining and the sort is stable.
func summarize(records []domain.DebtRecord) []domain.CustomerSummary {
	byCustomer := map[string]*customerAccumulator{}
	var order []string

	for _, rec := range records {
		if rec.Customer == nil || rec.Customer.ID == "" {
			continue
		}
		id := rec.Customer.ID

		acc, ok := byCustomer[id]
		if !ok {
			acc = &customerAccumulator{
				summary: domain.CustomerSummary{CustomerID: id},
				phones:  map[string]bool{},
			}
			byCustomer[id] = acc
			order = append(order, id)
		}

		acc.summary.CustomerName = rec.Customer.Name
		if rec.CreatedBy != nil {
			acc.summary.CreatedBy = rec.CreatedBy.Name
		}
		acc.summary.TotalAmount += float64(rec.Amount)
		acc.summary.PaidAmount += float64(rec.PaidAmount)
		acc.summary.RemainingAmount += rec.Remaining()

		for _, phone := range rec.ContactPhones {
			if phone != "" {
				acc.phones[phone] = true
			}
		}
	}

	var result []domain.CustomerSummary
	for _, id := range order {
		acc := byCustomer[id]
		if acc.summary.RemainingAmount <= 0 {
			continue
		}

		phones := make([]string, 0, len(acc.phones))
		for phone := range acc.phones {
			phones = append(phones, phone)
		}
		sort.Strings(phones)
		acc.summary.Phones = strings.Join(phones, ", ")

		result = append(result, acc.summary)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RemainingAmount > result[j].RemainingAmount
	})

	return result
}
