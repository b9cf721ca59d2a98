package yugwan

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Page is one page of a paginated list
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether another page follows
func (p *Page[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// decodePage accepts a paginated object or a bare array
func decodePage[T any](data json.RawMessage) (*Page[T], error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errors.Wrap(err, "failed to decode list")
		}
		return &Page[T]{Count: len(items), Results: items}, nil
	}

	var page Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, errors.Wrap(err, "failed to decode page")
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	return &page, nil
}

// ListParams filters and pages list endpoints. Zero values are omitted.
// Filters an endpoint does not support are ignored by the server.
type ListParams struct {
	Page     int
	Search   string
	Category string
	Source   string
	Year     int
	Featured *bool
	Pinned   *bool
}

// Values encodes the parameters as a query
func (p *ListParams) Values() url.Values {
	v := url.Values{}
	if p == nil {
		return v
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Category != "" {
		v.Set("category", p.Category)
	}
	if p.Source != "" {
		v.Set("source", p.Source)
	}
	if p.Year > 0 {
		v.Set("year", strconv.Itoa(p.Year))
	}
	if p.Featured != nil {
		v.Set("is_featured", strconv.FormatBool(*p.Featured))
	}
	if p.Pinned != nil {
		v.Set("is_pinned", strconv.FormatBool(*p.Pinned))
	}
	return v
}

// TokenPair is the login response
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// MessageResponse is the body of endpoints that only confirm an action
type MessageResponse struct {
	Message string `json:"message"`
}

// User is the profile of the logged-in member
type User struct {
	ID                int        `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Tier              string     `json:"tier"`
	TierDisplay       string     `json:"tier_display"`
	TierApprovedAt    *time.Time `json:"tier_approved_at"`
	AdminLevel        string     `json:"admin_level"`
	AdminLevelDisplay string     `json:"admin_level_display"`
	IsStaff           bool       `json:"is_staff"`
	IsSuperuser       bool       `json:"is_superuser"`
	Phone             string     `json:"phone"`
	Address           string     `json:"address"`
	BirthDate         *Date      `json:"birth_date"`
	Occupation        string     `json:"occupation"`
	JoinSource        string     `json:"join_source"`
	JoinMessage       string     `json:"join_message"`
	MarketingAgreed   bool       `json:"marketing_agreed"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Profile returns the display snapshot of u
func (u *User) Profile() Profile {
	return Profile{FirstName: u.FirstName, Username: u.Username}
}

// RegisterParams is the sign-up form
type RegisterParams struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
	BirthDate       *Date  `json:"birth_date,omitempty"`
	Occupation      string `json:"occupation,omitempty"`
	JoinSource      string `json:"join_source,omitempty"`
	JoinMessage     string `json:"join_message,omitempty"`
	MarketingAgreed bool   `json:"marketing_agreed"`
}

// RegisterResult confirms a sign-up
type RegisterResult struct {
	Message string `json:"message"`
	UserID  int    `json:"user_id"`
	Tier    string `json:"tier"`
}

// UpdateProfileParams changes profile fields. Nil fields are left unchanged.
type UpdateProfileParams struct {
	Email           *string `json:"email,omitempty"`
	FirstName       *string `json:"first_name,omitempty"`
	LastName        *string `json:"last_name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Address         *string `json:"address,omitempty"`
	BirthDate       *Date   `json:"birth_date,omitempty"`
	Occupation      *string `json:"occupation,omitempty"`
	MarketingAgreed *bool   `json:"marketing_agreed,omitempty"`
}

// Notice is an announcement. Content is only set on the detail endpoint.
type Notice struct {
	ID              int       `json:"id"`
	Category        string    `json:"category"`
	CategoryDisplay string    `json:"category_display"`
	Title           string    `json:"title"`
	Content         string    `json:"content,omitempty"`
	Author          string    `json:"author"`
	Views           int       `json:"views"`
	IsPinned        bool      `json:"is_pinned"`
	CreatedAt       time.Time `json:"created_at"`
}

// News is a press coverage entry
type News struct {
	ID            int    `json:"id"`
	Source        string `json:"source"`
	Title         string `json:"title"`
	Excerpt       string `json:"excerpt"`
	LinkURL       string `json:"link_url"`
	Thumbnail     string `json:"thumbnail"`
	IsFeatured    bool   `json:"is_featured"`
	PublishedDate Date   `json:"published_date"`
}

// GalleryAlbum is a photo album. Images are only set on the detail endpoint.
type GalleryAlbum struct {
	ID              int            `json:"id"`
	Category        string         `json:"category"`
	CategoryDisplay string         `json:"category_display"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	EventDate       Date           `json:"event_date"`
	CoverImage      string         `json:"cover_image"`
	IsFeatured      bool           `json:"is_featured"`
	Views           int            `json:"views"`
	ImageCount      int            `json:"image_count"`
	Images          []GalleryImage `json:"images,omitempty"`
}

// GalleryImage is one photo of an album
type GalleryImage struct {
	ID      int    `json:"id"`
	Image   string `json:"image"`
	Caption string `json:"caption"`
	Order   int    `json:"order"`
}

// GalleryVideo is a linked video
type GalleryVideo struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	YoutubeURL string    `json:"youtube_url"`
	Thumbnail  string    `json:"thumbnail"`
	Duration   string    `json:"duration"`
	Views      int       `json:"views"`
	CreatedAt  time.Time `json:"created_at"`
}

// ContestApplicationParams is the speech contest entry form
type ContestApplicationParams struct {
	ContestYear   int
	Name          string
	BirthDate     Date
	SchoolName    string
	Grade         string
	Division      string
	SpeechTitle   string
	ParentName    string
	ContactParent string
	TeacherName   string
	Email         string
	Address       string
	RulesAgreed   bool
	PrivacyAgreed bool
	NewsAgreed    bool

	// ScriptFile is the speech script upload
	ScriptFile FormFile
}

// ContestApplication is a submitted contest entry
type ContestApplication struct {
	ID              int       `json:"id"`
	ContestYear     int       `json:"contest_year"`
	Name            string    `json:"name"`
	BirthDate       Date      `json:"birth_date"`
	SchoolName      string    `json:"school_name"`
	Grade           string    `json:"grade"`
	GradeDisplay    string    `json:"grade_display"`
	Division        string    `json:"division"`
	DivisionDisplay string    `json:"division_display"`
	SpeechTitle     string    `json:"speech_title"`
	ParentName      string    `json:"parent_name"`
	ContactParent   string    `json:"contact_parent"`
	TeacherName     string    `json:"teacher_name"`
	Email           string    `json:"email"`
	Address         string    `json:"address"`
	ScriptFile      string    `json:"script_file"`
	Status          string    `json:"status"`
	StatusDisplay   string    `json:"status_display"`
	RulesAgreed     bool      `json:"rules_agreed"`
	PrivacyAgreed   bool      `json:"privacy_agreed"`
	NewsAgreed      bool      `json:"news_agreed"`
	CreatedAt       time.Time `json:"created_at"`
	ReceiptNumber   string    `json:"receipt_number"`
}

// ContestWinner is an awarded contest entry
type ContestWinner struct {
	ID              int    `json:"id"`
	ContestYear     int    `json:"contest_year"`
	Name            string `json:"name"`
	SchoolName      string `json:"school_name"`
	Division        string `json:"division"`
	DivisionDisplay string `json:"division_display"`
	Award           string `json:"award"`
	SpeechTitle     string `json:"speech_title"`
}

// Receipt confirms a submitted form
type Receipt struct {
	ID            int    `json:"id"`
	Message       string `json:"message"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	Amount        int    `json:"amount,omitempty"`
}

// VolunteerApplicationParams is the volunteer sign-up form
type VolunteerApplicationParams struct {
	Name           string   `json:"name"`
	BirthDate      Date     `json:"birth_date"`
	Phone          string   `json:"phone"`
	Email          string   `json:"email"`
	Occupation     string   `json:"occupation"`
	Programs       []string `json:"programs"`
	AvailableDates string   `json:"available_dates"`
	Experience     string   `json:"experience,omitempty"`
	Motivation     string   `json:"motivation"`
	PrivacyAgreed  bool     `json:"privacy_agreed"`
}

// Donation types
const (
	DonationOnce    = "once"
	DonationMonthly = "monthly"
)

// DonationParams is the donation pledge form
type DonationParams struct {
	DonationType     string `json:"donation_type"`
	Amount           int    `json:"amount"`
	DonorName        string `json:"donor_name"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	ReceiptRequested bool   `json:"receipt_requested"`
	ReceiptName      string `json:"receipt_name,omitempty"`
	ReceiptID        string `json:"receipt_id,omitempty"`
}

// MemberParams is the association membership form
type MemberParams struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	BirthDate       *Date  `json:"birth_date,omitempty"`
	Address         string `json:"address,omitempty"`
	MemberType      string `json:"member_type,omitempty"`
	Message         string `json:"message,omitempty"`
	PrivacyAgreed   bool   `json:"privacy_agreed"`
	MarketingAgreed bool   `json:"marketing_agreed"`
}

// Popup is a currently displayed site popup
type Popup struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	PCImage     string    `json:"pc_image"`
	MobileImage string    `json:"mobile_image"`
	LinkURL     string    `json:"link_url"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	IsActive    bool      `json:"is_active"`
	IsVisible   bool      `json:"is_visible"`
}
