package models

// PushKeys are the client encryption keys of a Web Push subscription.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushIdentity is the opaque push descriptor a browser hands out on
// subscription. Two identities are the same subscriber iff they are
// structurally equal; the struct is comparable so == is that comparison.
type PushIdentity struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}

// Zero reports whether the identity is unset.
func (p PushIdentity) Zero() bool {
	return p == PushIdentity{}
}

// Subscription is one subscriber's registration: where to push, which
// locations to check, and the local time of the daily check.
type Subscription struct {
	Identity         PushIdentity `json:"subscription"`
	Locations        []Location   `json:"locations"`
	NotificationTime string       `json:"notificationTime"`
}

// Notification is the dispatched message shape, identical for in-process
// display and for the JSON-serialized push payload.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
}
