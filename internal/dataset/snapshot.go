package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrExplanationShape means the attribution matrix doesn't line up with
	// the transaction set or feature list.
	ErrExplanationShape = errors.New("explanation matrix shape mismatch")
)

// Snapshot is the immutable in-memory table of scored transactions plus the
// precomputed per-transaction feature attributions.
//
// Accessors return copies; nothing handed out aliases internal state. A
// Snapshot is safe for concurrent readers.
type Snapshot struct {
	transactions []Transaction
	byID         map[string]int
	clients      map[string]Client
	byClient     map[string][]int

	// Explanation data, optional. featureRows holds the model input values
	// per transaction (for display labels), attribRows the signed
	// attributions in the same feature order.
	features    []string
	featureRows [][]float64
	attribRows  [][]float64
}

// New builds a snapshot from loaded transactions and clients.
func New(transactions []Transaction, clients []Client) *Snapshot {
	s := &Snapshot{
		transactions: make([]Transaction, len(transactions)),
		byID:         make(map[string]int, len(transactions)),
		clients:      make(map[string]Client, len(clients)),
		byClient:     make(map[string][]int),
	}
	copy(s.transactions, transactions)
	for i, tx := range s.transactions {
		s.byID[tx.ID] = i
		s.byClient[tx.Client] = append(s.byClient[tx.Client], i)
	}
	for _, c := range clients {
		s.clients[c.Name] = c
	}
	return s
}

// WithExplanations attaches the attribution matrix produced by the upstream
// explainer. Row i explains transaction i; both matrices share the feature
// order of names.
func (s *Snapshot) WithExplanations(names []string, values, attribs [][]float64) error {
	if len(values) != len(s.transactions) || len(attribs) != len(s.transactions) {
		return fmt.Errorf("%w: %d rows for %d transactions", ErrExplanationShape, len(attribs), len(s.transactions))
	}
	for i := range attribs {
		if len(attribs[i]) != len(names) || len(values[i]) != len(names) {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrExplanationShape, i, len(attribs[i]), len(names))
		}
	}
	s.features = names
	s.featureRows = values
	s.attribRows = attribs
	return nil
}

// Len returns the number of transactions.
func (s *Snapshot) Len() int {
	return len(s.transactions)
}

// At returns the transaction at index i.
func (s *Snapshot) At(i int) (Transaction, bool) {
	if i < 0 || i >= len(s.transactions) {
		return Transaction{}, false
	}
	return s.transactions[i], true
}

// ByID returns the transaction with the given identifier.
func (s *Snapshot) ByID(id string) (Transaction, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Transaction{}, false
	}
	return s.transactions[i], true
}

// IndexOf returns the row index of a transaction identifier.
func (s *Snapshot) IndexOf(id string) (int, bool) {
	i, ok := s.byID[id]
	return i, ok
}

// Has reports whether the transaction identifier resolves in the snapshot.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Transactions returns a copy of the full transaction table.
func (s *Snapshot) Transactions() []Transaction {
	out := make([]Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Client returns the client record for a display name.
func (s *Snapshot) Client(name string) (Client, bool) {
	c, ok := s.clients[name]
	return c, ok
}

// ClientTransactions returns every transaction owned by the named client.
func (s *Snapshot) ClientTransactions(name string) []Transaction {
	idxs := s.byClient[name]
	out := make([]Transaction, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.transactions[i])
	}
	return out
}

// Features returns the model's feature names in attribution order.
func (s *Snapshot) Features() []string {
	out := make([]string, len(s.features))
	copy(out, s.features)
	return out
}

// HasExplanations reports whether attribution vectors were loaded.
func (s *Snapshot) HasExplanations() bool {
	return s.attribRows != nil
}

// Explanation returns the model input values and signed attributions for
// row i. ok is false when i is out of range or explanations were never
// loaded.
func (s *Snapshot) Explanation(i int) (values, attribs []float64, ok bool) {
	if s.attribRows == nil || i < 0 || i >= len(s.attribRows) {
		return nil, nil, false
	}
	values = make([]float64, len(s.featureRows[i]))
	copy(values, s.featureRows[i])
	attribs = make([]float64, len(s.attribRows[i]))
	copy(attribs, s.attribRows[i])
	return values, attribs, true
}
