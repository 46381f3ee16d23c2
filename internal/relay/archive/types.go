package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// PostRecord is one archived post. Records are appended and never mutated.
type PostRecord struct {
	User  PostUser  `json:"user"`
	Text  string    `json:"text"`
	Stats PostStats `json:"stats"`
	Dates PostDates `json:"dates"`
}

type PostUser struct {
	Name       string `json:"name"`
	ScreenName string `json:"screenName"`
	AvatarURL  string `json:"avatarUrl"`
}

type PostStats struct {
	FavoriteCount int64 `json:"favoriteCount"`
	RetweetCount  int64 `json:"retweetCount"`
	BookmarkCount int64 `json:"bookmarkCount"`
	ViewCount     int64 `json:"viewCount"`
	QuoteCount    int64 `json:"quoteCount"`
	ReplyCount    int64 `json:"replyCount"`
}

// UnmarshalJSON accepts counters written as numbers or numeric strings, as
// found in archives produced by older writers.
func (p *PostStats) UnmarshalJSON(b []byte) error {
	var aux struct {
		FavoriteCount count `json:"favoriteCount"`
		RetweetCount  count `json:"retweetCount"`
		BookmarkCount count `json:"bookmarkCount"`
		ViewCount     count `json:"viewCount"`
		QuoteCount    count `json:"quoteCount"`
		ReplyCount    count `json:"replyCount"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = PostStats{
		FavoriteCount: aux.FavoriteCount.Value,
		RetweetCount:  aux.RetweetCount.Value,
		BookmarkCount: aux.BookmarkCount.Value,
		ViewCount:     aux.ViewCount.Value,
		QuoteCount:    aux.QuoteCount.Value,
		ReplyCount:    aux.ReplyCount.Value,
	}
	return nil
}

type PostDates struct {
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// UserUpdate is the data payload of an upstream user-update frame.
type UserUpdate struct {
	TwitterUser TwitterUser `json:"twitterUser"`
	Status      *Status     `json:"status"`
}

type TwitterUser struct {
	Name                 string `json:"name"`
	ScreenName           string `json:"screenName"`
	ProfileImageURLHTTPS string `json:"profileImageUrlHttps"`
	AvatarURL            string `json:"avatarUrl"`
}

// Status carries both the snake_case and camelCase counter spellings the
// monitor has been seen to send.
type Status struct {
	FullText  string `json:"full_text"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`

	FavoriteCountSnake count `json:"favorite_count"`
	FavoriteCount      count `json:"favoriteCount"`
	RetweetCountSnake  count `json:"retweet_count"`
	RetweetCount       count `json:"retweetCount"`
	BookmarkCountSnake count `json:"bookmark_count"`
	BookmarkCount      count `json:"bookmarkCount"`
	ViewCountSnake     count `json:"view_count"`
	ViewCount          count `json:"viewCount"`
	QuoteCountSnake    count `json:"quote_count"`
	QuoteCount         count `json:"quoteCount"`
	ReplyCountSnake    count `json:"reply_count"`
	ReplyCount         count `json:"replyCount"`
}

// count is an optional counter that accepts JSON numbers or numeric strings.
type count struct {
	Value int64
	Set   bool
}

func (c *count) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if v, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		c.Value, c.Set = v, true
		return nil
	}
	if f, err := strconv.ParseFloat(string(b), 64); err == nil || errors.Is(err, strconv.ErrRange) {
		c.Value, c.Set = clampInt64(f)
	}
	// unparseable counters are treated as absent
	return nil
}

// clampInt64 truncates f toward zero, saturating at the int64 range. NaN is
// reported as unset.
func clampInt64(f float64) (int64, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	default:
		return int64(f), true
	}
}

func firstCount(counts ...count) int64 {
	for _, c := range counts {
		if c.Set {
			return c.Value
		}
	}
	return 0
}

// ParseUserUpdate decodes a user-update data payload.
func ParseUserUpdate(data json.RawMessage) (UserUpdate, error) {
	var u UserUpdate
	err := json.Unmarshal(data, &u)
	return u, err
}
