package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"PropSync/internal/model"
)

// fakeProvider 可编排的赔率源
type fakeProvider struct {
	mu         sync.Mutex
	events     []model.ProviderEvent
	props      map[string]*model.ParsedProps
	listErr    error
	fetchErr   error
	listCalls  int
	fetchCalls int
}

func newFakeProvider(events ...model.ProviderEvent) *fakeProvider {
	return &fakeProvider{events: events, props: make(map[string]*model.ParsedProps)}
}

func (f *fakeProvider) GetName() string { return "fake" }

func (f *fakeProvider) ListEvents(_ context.Context) ([]model.ProviderEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.ProviderEvent(nil), f.events...), nil
}

func (f *fakeProvider) FetchEventProps(_ context.Context, eventID string, _ []string) (*model.ParsedProps, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, nil, f.fetchErr
	}
	p, ok := f.props[eventID]
	if !ok {
		p = &model.ParsedProps{EventID: eventID}
	}
	raw, _ := json.Marshal(p)
	return p, raw, nil
}

func (f *fakeProvider) setLines(eventID, market string, lines ...model.PropLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props[eventID] = &model.ParsedProps{
		EventID: eventID,
		Markets: []model.MarketLines{{Key: market, Lines: lines}},
	}
}

// fakeFeed 返回固定名册
type fakeFeed struct {
	roster []model.RosterPlayer
	calls  int
	err    error
}

func (f *fakeFeed) FetchRoster(_ context.Context, _ int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return json.Marshal(f.roster)
}

var errUpstream = errors.New("upstream 503")

func line(player string, point, overOdds, underOdds float64) model.PropLine {
	return model.PropLine{
		Player: player,
		Over:   model.PropSide{Odds: overOdds, Point: point},
		Under:  model.PropSide{Odds: underOdds, Point: point},
	}
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func timePtr(t time.Time) *time.Time { return &t }
