package core

import (
	"bytes"
	"encoding/json"
)

// CategoryTotal is one aggregated row of a monthly summary.
type CategoryTotal struct {
	Name  string
	Total Money
}

// MonthlySummary maps category names to summed amounts for one calendar
// month, ordered by total descending with ties broken by name. Every
// catalog category appears, including those with a zero total.
type MonthlySummary []CategoryTotal

// MarshalJSON renders the summary as a JSON object whose key order is the
// summary order. A plain map would re-sort keys alphabetically and lose
// the total-descending contract.
func (s MonthlySummary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ct := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(ct.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.WriteString(ct.Total.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// GrandTotal sums every entry; the sum of the serialized entries always
// equals the sum of the matching expense amounts.
func (s MonthlySummary) GrandTotal() Money {
	var cents int64
	for _, ct := range s {
		cents += ct.Total.Cents
	}
	return Money{Cents: cents}
}
