package stats

import (
	"context"
	"errors"
	"fmt"
)

var errNotFound = errors.New("not found")

type fakeFetcher struct {
	lists    map[string][]string
	messages map[string]MessageMetadata
	listErr  map[string]error
	getErr   map[string]error
	gets     int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		lists:    map[string][]string{},
		messages: map[string]MessageMetadata{},
		listErr:  map[string]error{},
		getErr:   map[string]error{},
	}
}

// add registers a message under address and returns its id.
func (f *fakeFetcher) add(address, date, from, to string) string {
	id := fmt.Sprintf("m%d", len(f.messages)+1)
	headers := map[string]string{}
	if date != "" {
		headers[HeaderDate] = date
	}
	if from != "" {
		headers[HeaderFrom] = from
	}
	if to != "" {
		headers[HeaderTo] = to
	}
	f.messages[id] = NewMessageMetadata(id, headers)
	f.lists[address] = append(f.lists[address], id)
	return id
}

func (f *fakeFetcher) ListMessages(_ context.Context, address string) ([]string, error) {
	if err := f.listErr[address]; err != nil {
		return nil, err
	}
	return f.lists[address], nil
}

func (f *fakeFetcher) GetMetadata(_ context.Context, id string) (MessageMetadata, error) {
	f.gets++
	if err := f.getErr[id]; err != nil {
		return MessageMetadata{}, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return MessageMetadata{}, errNotFound
	}
	return msg, nil
}

type recordingReporter struct {
	lines []string
}

func (r *recordingReporter) Searching(address string) {
	r.lines = append(r.lines, "searching "+address)
}

func (r *recordingReporter) Found(address string, count int) {
	r.lines = append(r.lines, fmt.Sprintf("found %d %s", count, address))
}
