package stats

import (
	"iter"
	"net/textproto"
	"strings"
	"time"
)

// Header names read from each message.
const (
	HeaderDate = "Date"
	HeaderFrom = "From"
	HeaderTo   = "To"
)

// MetadataHeaders lists the headers a Fetcher must return.
var MetadataHeaders = []string{HeaderDate, HeaderFrom, HeaderTo}

// MessageMetadata is the header subset of a single message.
// Header names are stored in canonical MIME form.
type MessageMetadata struct {
	ID      string            `json:"id"`
	Headers map[string]string `json:"headers"`
}

// NewMessageMetadata returns metadata for id with the given name/value pairs.
func NewMessageMetadata(id string, headers map[string]string) MessageMetadata {
	m := MessageMetadata{ID: id, Headers: make(map[string]string, len(headers))}
	for name, value := range headers {
		m.SetHeader(name, value)
	}
	return m
}

// Header returns the value of the named header and whether it was present.
// A present header may have an empty value.
func (m MessageMetadata) Header(name string) (string, bool) {
	v, ok := m.Headers[textproto.CanonicalMIMEHeaderKey(name)]
	return v, ok
}

// SetHeader stores a header value. A repeated header replaces the earlier value.
func (m *MessageMetadata) SetHeader(name, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[textproto.CanonicalMIMEHeaderKey(name)] = value
}

// AddressStats holds the statistics for one counterparty address.
// FirstContact and LastContact are only meaningful when Dated is set.
type AddressStats struct {
	FirstContact time.Time `json:"first_contact"`
	LastContact  time.Time `json:"last_contact"`
	Dated        bool      `json:"dated"`
	Sent         int       `json:"sent"`
	Received     int       `json:"received"`
	Total        int       `json:"total"`
}

// HasDates reports whether at least one message date was recorded.
func (s AddressStats) HasDates() bool {
	return s.Dated
}

// FirstEmail renders FirstContact, or "" when no date was recorded.
func (s AddressStats) FirstEmail() string {
	if !s.Dated {
		return ""
	}
	return FormatDate(s.FirstContact)
}

// LastEmail renders LastContact, or "" when no date was recorded.
func (s AddressStats) LastEmail() string {
	if !s.Dated {
		return ""
	}
	return FormatDate(s.LastContact)
}

// Observe folds a single message into s. Total is always incremented.
// Header problems are returned as *HeaderError values joined together;
// everything that could be read is still applied.
func (s *AddressStats) Observe(address string, msg MessageMetadata) error {
	var errs []error

	if raw, ok := msg.Header(HeaderDate); ok {
		date, err := ParseDate(raw)
		if err != nil {
			errs = append(errs, &HeaderError{MessageID: msg.ID, Header: HeaderDate, Value: raw, Err: err})
		} else {
			s.observeDate(date)
		}
	}

	if from, ok := msg.Header(HeaderFrom); !ok {
		errs = append(errs, &HeaderError{MessageID: msg.ID, Header: HeaderFrom, Err: ErrMissingHeader})
	} else if strings.Contains(from, address) {
		s.Sent++
	}

	if to, ok := msg.Header(HeaderTo); !ok {
		errs = append(errs, &HeaderError{MessageID: msg.ID, Header: HeaderTo, Err: ErrMissingHeader})
	} else if strings.Contains(to, address) {
		s.Received++
	}

	s.Total++

	return joinErrors(errs)
}

func (s *AddressStats) observeDate(date time.Time) {
	if !s.Dated {
		s.FirstContact, s.LastContact, s.Dated = date, date, true
		return
	}
	if date.Before(s.FirstContact) {
		s.FirstContact = date
	}
	if date.After(s.LastContact) {
		s.LastContact = date
	}
}

// Fold folds every message in msgs into a fresh AddressStats for address.
// Header errors do not stop the fold; they are returned joined.
func Fold(address string, msgs iter.Seq[MessageMetadata]) (AddressStats, error) {
	var stats AddressStats
	var errs []error
	for msg := range msgs {
		if err := stats.Observe(address, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return stats, joinErrors(errs)
}

// Result maps queried addresses to their statistics, in query order.
type Result struct {
	order []string
	stats map[string]AddressStats
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{stats: make(map[string]AddressStats)}
}

// Set stores the statistics for address. A new address is appended to the order.
func (r *Result) Set(address string, s AddressStats) {
	if _, ok := r.stats[address]; !ok {
		r.order = append(r.order, address)
	}
	r.stats[address] = s
}

// Get returns the statistics for address.
func (r *Result) Get(address string) (AddressStats, bool) {
	s, ok := r.stats[address]
	return s, ok
}

// Len returns the number of addresses in the result.
func (r *Result) Len() int {
	return len(r.order)
}

// Addresses returns the addresses in query order.
func (r *Result) Addresses() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All iterates over the result in query order.
func (r *Result) All() iter.Seq2[string, AddressStats] {
	return func(yield func(string, AddressStats) bool) {
		for _, address := range r.order {
			if !yield(address, r.stats[address]) {
				return
			}
		}
	}
}

// NormalizeAddresses trims whitespace, drops empty entries and removes
// duplicates, keeping the first occurrence of each address.
func NormalizeAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
