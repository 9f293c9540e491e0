package models

import "encoding/json"

// PublicUser is the part of an account shown next to content other people see.
type PublicUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Public projects u for embedding in public responses. A nil user stays nil.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

// MarshalJSON embeds the owner as a PublicUser.
func (v Video) MarshalJSON() ([]byte, error) {
	type plain Video
	return json.Marshal(struct {
		plain
		User *PublicUser `json:"user,omitempty"`
	}{plain(v), v.User.Public()})
}

// MarshalJSON embeds the author as a PublicUser.
func (c Comment) MarshalJSON() ([]byte, error) {
	type plain Comment
	return json.Marshal(struct {
		plain
		User *PublicUser `json:"user,omitempty"`
	}{plain(c), c.User.Public()})
}

// MarshalJSON embeds the actor as a PublicUser.
func (n Notification) MarshalJSON() ([]byte, error) {
	type plain Notification
	return json.Marshal(struct {
		plain
		Actor *PublicUser `json:"actor,omitempty"`
	}{plain(n), n.Actor.Public()})
}

// MarshalJSON embeds both parties as PublicUsers.
func (s Subscription) MarshalJSON() ([]byte, error) {
	type plain Subscription
	return json.Marshal(struct {
		plain
		Subscriber *PublicUser `json:"subscriber,omitempty"`
		Creator    *PublicUser `json:"creator,omitempty"`
	}{plain(s), s.Subscriber.Public(), s.Creator.Public()})
}
