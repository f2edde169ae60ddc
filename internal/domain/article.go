package domain

import (
	"bytes"
	"cmp"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// EpochMillis is a publication timestamp in milliseconds since the Unix epoch.
// NaN marks a missing or unparseable timestamp.
type EpochMillis float64

// NaN returns the "not-a-number" sentinel.
func NaN() EpochMillis { return EpochMillis(math.NaN()) }

// MillisFromTime converts t to epoch milliseconds.
func MillisFromTime(t time.Time) EpochMillis { return EpochMillis(t.UnixMilli()) }

// IsNaN reports whether the timestamp is the sentinel.
func (m EpochMillis) IsNaN() bool { return math.IsNaN(float64(m)) }

// Time returns the timestamp as time.Time; ok is false for the sentinel.
func (m EpochMillis) Time() (time.Time, bool) {
	if m.IsNaN() {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(m)).UTC(), true
}

// MarshalJSON encodes the sentinel as null and valid values as integers.
func (m EpochMillis) MarshalJSON() ([]byte, error) {
	if m.IsNaN() || math.IsInf(float64(m), 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(int64(m), 10)), nil
}

// UnmarshalJSON accepts null as the sentinel.
func (m *EpochMillis) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = NaN()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = EpochMillis(f)
	return nil
}

// Article is the canonical, immutable article shape served to readers.
type Article struct {
	Source      string      `json:"source"`
	Author      string      `json:"author"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	URI         string      `json:"uri"`
	URIToImage  string      `json:"uriToImage"`
	PublishedAt EpochMillis `json:"publishedAt"`
}

// ComparePublishedAt orders articles ascending by PublishedAt.
// Sentinel timestamps sort after every valid one and compare equal to each other.
func ComparePublishedAt(a, b Article) int {
	aNaN, bNaN := a.PublishedAt.IsNaN(), b.PublishedAt.IsNaN()
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(a.PublishedAt, b.PublishedAt)
}
