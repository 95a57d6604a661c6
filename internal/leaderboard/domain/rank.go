package domain

import "sort"

// RankedEntry is one row of the derived leaderboard view.
type RankedEntry struct {
	Rank     int
	UserID   int64
	Username string
	Invites  int
}

// Rank orders the state into the leaderboard view: invites descending,
// earlier first submission breaking ties, then user id so the order is
// fully deterministic. Ranks are 1-based and contiguous.
func Rank(s State) []RankedEntry {
	records := make([]InviteRecord, 0, len(s.Records))
	for _, rec := range s.Records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Invites != records[j].Invites {
			return records[i].Invites > records[j].Invites
		}
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].UserID < records[j].UserID
	})

	ranked := make([]RankedEntry, len(records))
	for i, rec := range records {
		ranked[i] = RankedEntry{
			Rank:     i + 1,
			UserID:   rec.UserID,
			Username: rec.Username,
			Invites:  rec.Invites,
		}
	}
	return ranked
}

// RankOf returns the 1-based rank for userID, or false when the user has no
// record.
func RankOf(s State, userID int64) (int, bool) {
	for _, entry := range Rank(s) {
		if entry.UserID == userID {
			return entry.Rank, true
		}
	}
	return 0, false
}
