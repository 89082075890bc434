package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// twitterTimeLayout is the created_at layout used by the v1.1 API.
const twitterTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Status mirrors the subset of an upstream status object the relay uses.
type Status struct {
	IDStr       string `json:"id_str"`
	Text        string `json:"text"`
	FullText    string `json:"full_text"`
	TimestampMS string `json:"timestamp_ms"`
	CreatedAt   string `json:"created_at"`
	User        struct {
		ScreenName           string `json:"screen_name"`
		Name                 string `json:"name"`
		ProfileImageURL      string `json:"profile_image_url"`
		ProfileImageURLHTTPS string `json:"profile_image_url_https"`
	} `json:"user"`
}

// ParseStatus decodes one upstream status. ok is false for control messages
// (limit notices, deletes) that carry no tweet.
func ParseStatus(raw []byte) (Tweet, bool, error) {
	var s Status
	if err := json.Unmarshal(raw, &s); err != nil {
		return Tweet{}, false, fmt.Errorf("decode status: %w", err)
	}
	t, ok := s.Tweet()
	return t, ok, nil
}

// Tweet converts the status into the relayed payload.
func (s Status) Tweet() (Tweet, bool) {
	if s.IDStr == "" {
		return Tweet{}, false
	}

	text := s.Text
	if s.FullText != "" {
		text = s.FullText
	}

	avatar := s.User.ProfileImageURL
	if avatar == "" {
		avatar = s.User.ProfileImageURLHTTPS
	}

	return Tweet{
		ID:   s.IDStr,
		TS:   s.timestamp(),
		Text: text,
		User: TweetUser{
			ScreenName:      s.User.ScreenName,
			Name:            s.User.Name,
			ProfileImageURL: avatar,
		},
	}, true
}

// timestamp prefers timestamp_ms (stream) and falls back to created_at (search).
func (s Status) timestamp() string {
	if s.TimestampMS != "" {
		return s.TimestampMS
	}
	if t, err := time.Parse(twitterTimeLayout, s.CreatedAt); err == nil {
		return strconv.FormatInt(t.UnixMilli(), 10)
	}
	return ""
}
