package main

import (
	"testing"

	"github.com/create2gpu/miner/internal/sink"
)

func TestSortByScoreDesc(t *testing.T) {
	hits := []sink.Hit{
		{Address: "a", Score: 3},
		{Address: "b", Score: 9},
		{Address: "c", Score: 1},
		{Address: "d", Score: 9},
	}
	sortByScoreDesc(hits)

	want := []string{"b", "d", "a", "c"}
	for i, addr := range want {
		if hits[i].Address != addr {
			t.Errorf("position %d = %s, want %s", i, hits[i].Address, addr)
		}
	}
}

func TestSortByScoreDescEmpty(t *testing.T) {
	var hits []sink.Hit
	sortByScoreDesc(hits) // must not panic
}
