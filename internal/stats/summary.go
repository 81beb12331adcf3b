package stats

import (
	"fmt"
	"io"
	"sort"
)

// NotAvailable is displayed for a missing contact date.
const NotAvailable = "N/A"

// Record is one display row of a summary.
type Record struct {
	Address    string `json:"address"`
	Sent       int    `json:"sent"`
	Received   int    `json:"received"`
	Total      int    `json:"total"`
	FirstEmail string `json:"first_email"`
	LastEmail  string `json:"last_email"`
}

// Summarize returns one record per address, ordered by Total descending.
// Addresses with equal totals keep their query order.
func Summarize(result *Result) []Record {
	records := make([]Record, 0, result.Len())
	for address, s := range result.All() {
		records = append(records, Record{
			Address:    address,
			Sent:       s.Sent,
			Received:   s.Received,
			Total:      s.Total,
			FirstEmail: orNotAvailable(s.FirstEmail()),
			LastEmail:  orNotAvailable(s.LastEmail()),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Total > records[j].Total
	})

	return records
}

func orNotAvailable(date string) string {
	if date == "" {
		return NotAvailable
	}
	return date
}

// WriteSummary renders records as text blocks, each preceded by a blank line.
func WriteSummary(w io.Writer, records []Record) error {
	for _, r := range records {
		_, err := fmt.Fprintf(w, "\nSummary for email: %s\n"+
			"  Total emails sent: %d\n"+
			"  Total emails received: %d\n"+
			"  Total emails exchanged: %d\n"+
			"  First email: %s\n"+
			"  Last email: %s\n",
			r.Address, r.Sent, r.Received, r.Total, r.FirstEmail, r.LastEmail)
		if err != nil {
			return err
		}
	}
	return nil
}
