package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novastream/models"
)

func TestRankingProfilesInOrderSortsDefaultFirstThenAlphabetical(t *testing.T) {
	configured := map[string]models.RankingProfile{
		"4k":      {Name: "4k"},
		"anime":   {Name: "anime"},
		"default": {Name: "default"},
	}

	out := rankingProfilesInOrder(configured, "default")

	require.Len(t, out, 3)
	assert.Equal(t, "default", out[0].Name)
	assert.Equal(t, "4k", out[1].Name)
	assert.Equal(t, "anime", out[2].Name)
}

func TestRankingProfilesInOrderIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	configured := map[string]models.RankingProfile{
		"z": {Name: "z"}, "a": {Name: "a"}, "m": {Name: "m"},
	}

	first := rankingProfilesInOrder(configured, "")
	for i := 0; i < 10; i++ {
		again := rankingProfilesInOrder(configured, "")
		assert.Equal(t, first, again, "profile order must not vary across calls")
	}
}
