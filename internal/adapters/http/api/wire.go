package api

import (
	"strconv"
	"strings"

	"github.com/okian/jmscore/internal/domain/types"
)

// The client reads rows of ten newline-separated fields; rows are joined
// with '.'. Unused fields are sent as 0.
const rowSeparator = "."

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// formatPersonal renders personal rows as
// 0, 0, id, score, 0, level, 0, time, jewel, first.
func formatPersonal(rows []types.PersonalRow) string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, strings.Join([]string{
			"0",
			"0",
			r.PlayerID,
			strconv.FormatInt(r.Score, 10),
			"0",
			strconv.Itoa(r.Level),
			"0",
			strconv.FormatInt(r.ElapsedTime, 10),
			strconv.Itoa(r.JewelCount),
			flag(r.First),
		}, "\n"))
	}
	return strings.Join(out, rowSeparator)
}

// formatGlobal renders leaderboard rows as
// page, entryId, id, score, 0, level, class, time, jewel, highlight.
func formatGlobal(rows []types.GlobalRow) string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, strings.Join([]string{
			strconv.Itoa(r.Page),
			r.EntryID,
			r.PlayerID,
			strconv.FormatInt(r.Score, 10),
			"0",
			strconv.Itoa(r.Level),
			strconv.Itoa(r.Class),
			strconv.FormatInt(r.ElapsedTime, 10),
			strconv.Itoa(r.JewelCount),
			flag(r.Highlight),
		}, "\n"))
	}
	return strings.Join(out, rowSeparator)
}
