package imap

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/textproto"

	"github.com/teemow/contactstats/internal/stats"
)

// SearchCriteria matches messages whose From or To header contains address.
func SearchCriteria(address string) *imap.SearchCriteria {
	return &imap.SearchCriteria{
		Or: [][2]imap.SearchCriteria{{
			{Header: []imap.SearchCriteriaHeaderField{{Key: stats.HeaderFrom, Value: address}}},
			{Header: []imap.SearchCriteriaHeaderField{{Key: stats.HeaderTo, Value: address}}},
		}},
	}
}

// headerSection requests the metadata headers without setting \Seen.
func headerSection() *imap.FetchItemBodySection {
	return &imap.FetchItemBodySection{
		Specifier:    imap.PartSpecifierHeader,
		HeaderFields: stats.MetadataHeaders,
		Peek:         true,
	}
}

// formatID encodes a message id.
func formatID(uidValidity uint32, uid imap.UID) string {
	return strconv.FormatUint(uint64(uidValidity), 10) + "." + strconv.FormatUint(uint64(uid), 10)
}

// parseID decodes an id produced by formatID.
func parseID(id string) (uint32, imap.UID, error) {
	v, u, ok := strings.Cut(id, ".")
	if !ok {
		return 0, 0, fmt.Errorf("invalid message id %q", id)
	}
	validity, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid message id %q: %w", id, err)
	}
	uid, err := strconv.ParseUint(u, 10, 32)
	if err != nil || uid == 0 {
		return 0, 0, fmt.Errorf("invalid message id %q", id)
	}
	return uint32(validity), imap.UID(uid), nil
}

// parseHeaderBlock reads the Date, From and To fields from a raw header
// block. Encoded words are decoded; a value that fails to decode is kept raw.
func parseHeaderBlock(id string, raw []byte) (stats.MessageMetadata, error) {
	md := stats.NewMessageMetadata(id, nil)
	if len(raw) == 0 {
		return md, nil
	}

	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return md, fmt.Errorf("parsing headers of message %s: %w", id, err)
	}

	mh := message.Header{Header: h}
	for _, name := range stats.MetadataHeaders {
		if !h.Has(name) {
			continue
		}
		value, err := mh.Text(name)
		if err != nil {
			value = h.Get(name)
		}
		md.SetHeader(name, value)
	}
	return md, nil
}
