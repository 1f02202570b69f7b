// Package queue defines message payloads exchanged over the message broker.
package queue

// ProfileActivatedEvent is published when a user switches their active IPTV
// profile. It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database. The
// upstream password is deliberately absent.
type ProfileActivatedEvent struct {
    UserID      uint64 `json:"user_id"`
    ProfileID   uint64 `json:"profile_id"`
    ProfileName string `json:"profile_name"`
    IptvURL     string `json:"iptv_url"`
    ActivatedAt string `json:"activated_at"`
}
