package yugwan

import (
	"context"
)

// AuthService handles login, the member profile and the stored session
type AuthService interface {
	// Login exchanges credentials for tokens and stores them
	Login(ctx context.Context, email, password string) (*TokenPair, error)

	// Register creates a member account
	Register(ctx context.Context, params *RegisterParams) (*RegisterResult, error)

	// GetProfile retrieves the logged-in member and caches the display snapshot
	GetProfile(ctx context.Context) (*User, error)

	// UpdateProfile changes profile fields
	UpdateProfile(ctx context.Context, params *UpdateProfileParams) (*User, error)

	// ChangePassword replaces the password
	ChangePassword(ctx context.Context, currentPassword, newPassword string) (*MessageResponse, error)

	// DeleteAccount deletes the member and clears the session
	DeleteAccount(ctx context.Context, password string) (*MessageResponse, error)

	// Logout clears the stored session and profile snapshot
	Logout(ctx context.Context) error

	// IsLoggedIn reports whether an access token is stored
	IsLoggedIn(ctx context.Context) (bool, error)

	// CachedProfile returns the stored display snapshot without a request
	CachedProfile(ctx context.Context) (*Profile, error)
}

// ContestService handles the speech contest
type ContestService interface {
	// Apply submits an entry with its script file
	Apply(ctx context.Context, params *ContestApplicationParams) (*Receipt, error)

	// GetMyApplication looks up the latest entry by email and guardian phone
	GetMyApplication(ctx context.Context, email, phone string) (*ContestApplication, error)

	// GetWinners lists awarded entries, optionally for one year (zero for all)
	GetWinners(ctx context.Context, year int) ([]ContestWinner, error)
}

// ArchiveService handles notices, press coverage and the gallery
type ArchiveService interface {
	ListNotices(ctx context.Context, params *ListParams) (*Page[Notice], error)
	GetNotice(ctx context.Context, id int) (*Notice, error)
	ListNews(ctx context.Context, params *ListParams) (*Page[News], error)
	ListAlbums(ctx context.Context, params *ListParams) (*Page[GalleryAlbum], error)
	GetAlbum(ctx context.Context, id int) (*GalleryAlbum, error)
	ListVideos(ctx context.Context, params *ListParams) (*Page[GalleryVideo], error)
}

// JoinService handles volunteering, donations and membership
type JoinService interface {
	ApplyVolunteer(ctx context.Context, params *VolunteerApplicationParams) (*Receipt, error)
	Donate(ctx context.Context, params *DonationParams) (*Receipt, error)
	RegisterMember(ctx context.Context, params *MemberParams) (*Receipt, error)
}

// PopupService handles site popups
type PopupService interface {
	// GetActive lists popups currently on display
	GetActive(ctx context.Context) ([]Popup, error)
}
