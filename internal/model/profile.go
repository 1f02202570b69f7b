package model

import "time"

// Profile is a saved IPTV account configuration owned by a user:
// an Xtream endpoint URL plus the credentials for it.  A user may
// keep several profiles but at most one is active at a time; the
// active profile determines which upstream account playback and
// catalogue requests run against.  This struct corresponds to a
// row in the `profiles` table.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – owner of the profile.
//  Name         – display name, unique per owner.
//  IptvURL      – base URL of the Xtream endpoint.
//  IptvUsername – upstream account username.
//  IptvPassword – upstream account password.
//  IsActive     – whether this is the owner's active profile.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Profile struct {
    ID           uint64    `json:"id"`           // profiles.id
    UserID       uint64    `json:"userId"`       // profiles.user_id
    Name         string    `json:"name"`         // profiles.name
    IptvURL      string    `json:"iptvUrl"`      // profiles.iptv_url
    IptvUsername string    `json:"iptvUsername"` // profiles.iptv_username
    IptvPassword string    `json:"-"`            // profiles.iptv_password (never serialized)
    IsActive     bool      `json:"isActive"`     // profiles.is_active
    CreatedAt    time.Time `json:"createdAt"`    // profiles.created_at
    UpdatedAt    time.Time `json:"updatedAt"`    // profiles.updated_at
}
