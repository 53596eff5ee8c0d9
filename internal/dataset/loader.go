package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Scored-transaction CSV columns. The file is an external contract with the
// scoring pipeline: one row per transaction, raw model output in raw_score,
// ground truth in is_fraud (may be blank at inference time).
var requiredColumns = []string{
	"transaction_id", "merchant", "category", "amount", "timestamp",
	"raw_score", "first_name", "last_name",
}

const attrPrefix = "attr_"

// Load reads the scored-transaction CSV and, when attributionsPath is
// non-empty, the attribution CSV, returning a ready snapshot.
func Load(datasetPath, attributionsPath string) (*Snapshot, error) {
	f, err := os.Open(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	transactions, clients, err := parseTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", datasetPath, err)
	}
	snap := New(transactions, clients)

	if attributionsPath != "" {
		af, err := os.Open(attributionsPath)
		if err != nil {
			return nil, fmt.Errorf("open attributions: %w", err)
		}
		defer af.Close()
		if err := loadAttributions(snap, af); err != nil {
			return nil, fmt.Errorf("parse attributions %s: %w", attributionsPath, err)
		}
	}

	return snap, nil
}

func parseTransactions(r io.Reader) ([]Transaction, []Client, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var transactions []Transaction
	clients := make(map[string]Client)
	var clientOrder []string

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		amount, err := strconv.ParseFloat(field(rec, "amount"), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: bad amount: %w", line, err)
		}
		if amount < 0 {
			return nil, nil, fmt.Errorf("line %d: negative amount %v", line, amount)
		}
		raw, err := strconv.ParseFloat(field(rec, "raw_score"), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: bad raw_score: %w", line, err)
		}
		ts, err := time.Parse(time.RFC3339, field(rec, "timestamp"))
		if err != nil {
			// Scoring pipeline exports use a second-precision local format.
			ts, err = time.Parse("2006-01-02T15:04:05", field(rec, "timestamp"))
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: bad timestamp: %w", line, err)
			}
		}

		var groundTruth *bool
		if v := field(rec, "is_fraud"); v != "" {
			b, err := parseBool(v)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: bad is_fraud: %w", line, err)
			}
			groundTruth = &b
		}

		name := field(rec, "first_name") + " " + field(rec, "last_name")
		transactions = append(transactions, Transaction{
			ID:          field(rec, "transaction_id"),
			Client:      name,
			Merchant:    field(rec, "merchant"),
			Category:    field(rec, "category"),
			Amount:      amount,
			CardNumber:  field(rec, "card_number"),
			Timestamp:   ts,
			RawScore:    raw,
			Score:       DisplayScore(raw),
			Band:        BandFor(raw),
			GroundTruth: groundTruth,
		})

		// First row wins per client, matching the upstream groupby-first.
		if _, seen := clients[name]; !seen {
			age, _ := strconv.Atoi(field(rec, "age"))
			lat, _ := strconv.ParseFloat(field(rec, "latitude"), 64)
			lon, _ := strconv.ParseFloat(field(rec, "longitude"), 64)
			pop, _ := strconv.Atoi(field(rec, "city_population"))
			clients[name] = Client{
				Name:           name,
				FirstName:      field(rec, "first_name"),
				LastName:       field(rec, "last_name"),
				Gender:         field(rec, "gender"),
				Street:         field(rec, "street"),
				City:           field(rec, "city"),
				State:          field(rec, "state"),
				ZIP:            field(rec, "zip"),
				JobTitle:       field(rec, "job"),
				Age:            age,
				Latitude:       lat,
				Longitude:      lon,
				CityPopulation: pop,
				Photo:          field(rec, "photo"),
			}
			clientOrder = append(clientOrder, name)
		}
	}

	out := make([]Client, 0, len(clientOrder))
	for _, name := range clientOrder {
		out = append(out, clients[name])
	}
	return transactions, out, nil
}

// loadAttributions reads the attribution CSV. Columns: transaction_id, one
// column per feature holding the model input value, and one attr_<feature>
// column per feature holding the signed attribution. Rows are matched to the
// snapshot by transaction_id; every snapshot transaction must be covered.
func loadAttributions(snap *Snapshot, r io.Reader) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	idCol := -1
	var features []string
	valueCol := make(map[string]int)
	attrCol := make(map[string]int)
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == "transaction_id":
			idCol = i
		case strings.HasPrefix(name, attrPrefix):
			attrCol[strings.TrimPrefix(name, attrPrefix)] = i
		default:
			features = append(features, name)
			valueCol[name] = i
		}
	}
	if idCol < 0 {
		return fmt.Errorf("missing column %q", "transaction_id")
	}
	for _, feat := range features {
		if _, ok := attrCol[feat]; !ok {
			return fmt.Errorf("feature %q has no %s%s column", feat, attrPrefix, feat)
		}
	}

	values := make([][]float64, snap.Len())
	attribs := make([][]float64, snap.Len())

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		idx, ok := snap.IndexOf(strings.TrimSpace(rec[idCol]))
		if !ok {
			return fmt.Errorf("line %d: unknown transaction %q", line, rec[idCol])
		}
		vrow := make([]float64, len(features))
		arow := make([]float64, len(features))
		for j, feat := range features {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[valueCol[feat]]), 64)
			if err != nil {
				return fmt.Errorf("line %d: bad %s value: %w", line, feat, err)
			}
			a, err := strconv.ParseFloat(strings.TrimSpace(rec[attrCol[feat]]), 64)
			if err != nil {
				return fmt.Errorf("line %d: bad %s attribution: %w", line, feat, err)
			}
			vrow[j] = v
			arow[j] = a
		}
		values[idx] = vrow
		attribs[idx] = arow
	}

	for i := range attribs {
		if attribs[i] == nil {
			tx, _ := snap.At(i)
			return fmt.Errorf("no attribution row for transaction %q", tx.ID)
		}
	}

	return snap.WithExplanations(features, values, attribs)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes":
		return true, nil
	case "0", "false", "f", "no":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized boolean %q", s)
}
