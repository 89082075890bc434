package model

import "testing"

func TestParseStatusStreamItem(t *testing.T) {
	raw := []byte(`{"id_str":"42","text":"go #hack24","timestamp_ms":"1490000000000",
		"user":{"screen_name":"gopher","name":"Gopher","profile_image_url":"http://img/g.png"}}`)

	tw, ok, err := ParseStatus(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ok {
		t.Fatalf("expected a tweet")
	}
	want := Tweet{ID: "42", TS: "1490000000000", Text: "go #hack24", User: TweetUser{
		ScreenName: "gopher", Name: "Gopher", ProfileImageURL: "http://img/g.png",
	}}
	if tw != want {
		t.Fatalf("got %+v want %+v", tw, want)
	}
}

func TestParseStatusSearchItemUsesCreatedAt(t *testing.T) {
	raw := []byte(`{"id_str":"7","full_text":"long text","created_at":"Mon Mar 20 10:00:00 +0000 2017",
		"user":{"screen_name":"a","profile_image_url_https":"https://img/a.png"}}`)

	tw, ok, err := ParseStatus(raw)
	if err != nil || !ok {
		t.Fatalf("parse: ok=%v err=%v", ok, err)
	}
	if tw.TS != "1490004000000" {
		t.Errorf("ts = %q", tw.TS)
	}
	if tw.Text != "long text" {
		t.Errorf("text = %q", tw.Text)
	}
	if tw.User.ProfileImageURL != "https://img/a.png" {
		t.Errorf("avatar = %q", tw.User.ProfileImageURL)
	}
}

func TestParseStatusControlMessage(t *testing.T) {
	_, ok, err := ParseStatus([]byte(`{"limit":{"track":3}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ok {
		t.Fatalf("control message must not produce a tweet")
	}

	if _, _, err := ParseStatus([]byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
