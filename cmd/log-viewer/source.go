package main

import (
	"context"
	"time"

	"github.com/unklstewy/ads-loiter/internal/dailylog"
	"github.com/unklstewy/ads-loiter/internal/db"
)

// entrySource is where the viewer reads recorded flights from.
type entrySource interface {
	Name() string
	Days(ctx context.Context) ([]string, error)
	EntriesOn(ctx context.Context, day string) ([]dailylog.Entry, error)
}

// logSource reads the text log.
type logSource struct {
	log *dailylog.Log
}

func (s logSource) Name() string { return s.log.Path() }

func (s logSource) Days(ctx context.Context) ([]string, error) {
	return s.log.Days()
}

func (s logSource) EntriesOn(ctx context.Context, day string) ([]dailylog.Entry, error) {
	return s.log.EntriesOn(day)
}

// dbSource reads the PostgreSQL mirror.
type dbSource struct {
	repo *db.VerdictRepository
}

func (s dbSource) Name() string { return "postgres mirror" }

func (s dbSource) Days(ctx context.Context) ([]string, error) {
	return s.repo.ListDates(ctx, 0)
}

func (s dbSource) EntriesOn(ctx context.Context, day string) ([]dailylog.Entry, error) {
	verdicts, err := s.repo.ListByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	entries := make([]dailylog.Entry, 0, len(verdicts))
	for _, v := range verdicts {
		entries = append(entries, dailylog.EntryFromVerdict(v, time.Now()))
	}
	return entries, nil
}
