// Package types contains the ranking rows returned by queries.
package types

// PersonalRow is one line of a player's personal ranking view.
type PersonalRow struct {
	PlayerID    string
	Score       int64
	Level       int
	ElapsedTime int64
	JewelCount  int
	First       bool // set on the first emitted row only
}

// GlobalRow is one line of a global leaderboard page.
type GlobalRow struct {
	Page        int // page index echoed on every row
	EntryID     string
	PlayerID    string
	Score       int64
	Level       int
	Class       int
	ElapsedTime int64
	JewelCount  int
	Highlight   bool // the requesting player's first row on the page
}
