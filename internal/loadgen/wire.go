package loadgen

import (
	"fmt"
	"strconv"
	"strings"
)

const rowFields = 10

// PersonalRow is a decoded personal ranking row.
type PersonalRow struct {
	PlayerID    string
	Score       int64
	Level       int
	ElapsedTime int64
	JewelCount  int
	First       bool
}

// GlobalRow is a decoded leaderboard row.
type GlobalRow struct {
	Page        int
	EntryID     string
	PlayerID    string
	Score       int64
	Level       int
	Class       int
	ElapsedTime int64
	JewelCount  int
	Highlight   bool
}

// splitRows cuts a response into rows of ten fields. Player ids may not
// contain '.', which the server uses as the row separator.
func splitRows(body string) ([][]string, error) {
	if body == "" {
		return nil, nil
	}
	var rows [][]string
	for i, raw := range strings.Split(body, ".") {
		f := strings.Split(raw, "\n")
		if len(f) != rowFields {
			return nil, fmt.Errorf("row %d: %d fields, want %d", i, len(f), rowFields)
		}
		rows = append(rows, f)
	}
	return rows, nil
}

type fieldReader struct {
	f   []string
	err error
}

func (r *fieldReader) int64(i int) int64 {
	n, err := strconv.ParseInt(r.f[i], 10, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("field %d: %w", i, err)
	}
	return n
}

func (r *fieldReader) int(i int) int { return int(r.int64(i)) }

func (r *fieldReader) flag(i int) bool { return r.f[i] == "1" }

// ParsePersonal decodes a personal ranking response.
func ParsePersonal(body string) ([]PersonalRow, error) {
	rows, err := splitRows(body)
	if err != nil {
		return nil, err
	}
	out := make([]PersonalRow, 0, len(rows))
	for _, f := range rows {
		r := fieldReader{f: f}
		row := PersonalRow{
			PlayerID:    f[2],
			Score:       r.int64(3),
			Level:       r.int(5),
			ElapsedTime: r.int64(7),
			JewelCount:  r.int(8),
			First:       r.flag(9),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, row)
	}
	return out, nil
}

// ParseGlobal decodes a leaderboard page response.
func ParseGlobal(body string) ([]GlobalRow, error) {
	rows, err := splitRows(body)
	if err != nil {
		return nil, err
	}
	out := make([]GlobalRow, 0, len(rows))
	for _, f := range rows {
		r := fieldReader{f: f}
		row := GlobalRow{
			Page:        r.int(0),
			EntryID:     f[1],
			PlayerID:    f[2],
			Score:       r.int64(3),
			Level:       r.int(5),
			Class:       r.int(6),
			ElapsedTime: r.int64(7),
			JewelCount:  r.int(8),
			Highlight:   r.flag(9),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, row)
	}
	return out, nil
}
