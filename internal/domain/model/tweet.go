package model

// Tweet is the payload relayed for EventTweet packets.
type Tweet struct {
	ID   string    `json:"id"`
	TS   string    `json:"ts"`
	Text string    `json:"text"`
	User TweetUser `json:"user"`
}

// TweetUser carries the originating-user attributes shown next to a tweet.
type TweetUser struct {
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// TweetStream is a live upstream subscription.
//
// Recv is closed when the stream ends; Err then reports why (nil for a clean
// close). Close stops the stream and returns only after Recv has been closed,
// so items already received stay readable.
type TweetStream interface {
	Recv() <-chan Tweet
	Err() error
	Close() error
}
