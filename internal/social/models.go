package social

import "errors"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrSelfFollow      = errors.New("cannot follow yourself")
)

// Profile is the public view of a user document. Followers and Following
// hold user ids and are kept symmetric by Follow and Unfollow.
type Profile struct {
	ID              string   `json:"id"`
	Username        string   `json:"username"`
	Bio             string   `json:"bio"`
	ProfileImageURL string   `json:"profile_image_url"`
	Followers       []string `json:"followers"`
	Following       []string `json:"following"`
}

// FollowedBy reports whether userID is in the follower list.
func (p Profile) FollowedBy(userID string) bool {
	for _, id := range p.Followers {
		if id == userID {
			return true
		}
	}
	return false
}

// UpdateProfileRequest merges into the profile: blank Username or
// ProfileImageURL keep the stored value, Bio is written as given.
type UpdateProfileRequest struct {
	Username        string `json:"username"`
	Bio             string `json:"bio"`
	ProfileImageURL string `json:"profile_image_url"`
}
