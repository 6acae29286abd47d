package invitengine

// Index is the single registry document mapping every known slug to its
// summary metadata. DefaultSlug is the invitation served at the site root;
// an empty string means no default has been chosen yet.
type Index struct {
	DefaultSlug string       `json:"default_slug,omitempty"`
	Invitations []IndexEntry `json:"invitations"`
}

// IndexEntry is the per-invitation summary stored in the index.
type IndexEntry struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

func (idx Index) has(slug string) bool {
	for _, e := range idx.Invitations {
		if e.Slug == slug {
			return true
		}
	}
	return false
}

// Config is one invitation's full document, persisted as config.json
// under the invitation's directory. Meta.Slug always matches the
// directory name; everything else is owned by the renderer and the
// admin editor.
type Config struct {
	Meta           Meta           `json:"meta"`
	WeddingInfo    WeddingInfo    `json:"wedding_info"`
	FamilyInfo     FamilyInfo     `json:"family_info"`
	Messages       Messages       `json:"messages"`
	Transportation Transportation `json:"transportation"`
	AccountInfo    AccountInfo    `json:"account_info"`
	Images         Images         `json:"images"`
	GalleryImages  []GalleryImage `json:"gallery_images"`
	Audio          AudioSettings  `json:"audio"`
	Map            MapInfo        `json:"map"`
	MapSettings    MapSettings    `json:"map_settings"`
	APIKeys        APIKeys        `json:"api_keys"`
}

// Meta identifies an invitation and tracks its lifecycle timestamps.
type Meta struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Thumbnail string `json:"thumbnail"`
}

type WeddingInfo struct {
	GroomName      string `json:"groom_name"`
	BrideName      string `json:"bride_name"`
	WeddingDate    string `json:"wedding_date"`
	WeddingTime    string `json:"wedding_time"`
	WeddingVenue   string `json:"wedding_venue"`
	WeddingAddress string `json:"wedding_address"`
}

type FamilyInfo struct {
	GroomFather string `json:"groom_father"`
	GroomMother string `json:"groom_mother"`
	BrideFather string `json:"bride_father"`
	BrideMother string `json:"bride_mother"`
}

type Messages struct {
	InvitationMessage string `json:"invitation_message"`
	PoemMessage       string `json:"poem_message"`
	OutroMessage      string `json:"outro_message"`
}

type Transportation struct {
	Subway  string `json:"subway"`
	Bus     string `json:"bus"`
	Parking string `json:"parking"`
}

// Account is one bank account shown in the gift-money section.
type Account struct {
	Bank   string `json:"bank"`
	Number string `json:"number"`
	Name   string `json:"name"`
}

type AccountInfo struct {
	GroomAccounts []Account `json:"groom_accounts"`
	BrideAccounts []Account `json:"bride_accounts"`
}

// Images holds the fixed photo slots. The *_type fields distinguish
// still images from video uploads filling the same slot.
type Images struct {
	MainPhoto           string `json:"main_photo"`
	MainPhotoType       string `json:"main_photo_type,omitempty"`
	InvitationPhoto     string `json:"invitation_photo"`
	InvitationPhotoType string `json:"invitation_photo_type"`
	PhotoboothPhoto     string `json:"photobooth_photo"`
	PhotoboothPhotoType string `json:"photobooth_photo_type,omitempty"`
	OutroPhoto          string `json:"outro_photo"`
	OutroPhotoType      string `json:"outro_photo_type"`
}

// GalleryImage is one gallery tile, image or video.
type GalleryImage struct {
	Path string `json:"path"`
	Size string `json:"size"`
	Type string `json:"type"`
}

type AudioSettings struct {
	BackgroundMusic string `json:"background_music"`
	Autoplay        bool   `json:"autoplay"`
	Loop            bool   `json:"loop"`
	Volume          int    `json:"volume"`
}

type MapInfo struct {
	Image string `json:"image"`
	Link  string `json:"link"`
}

// MapSettings carries the venue block shown next to the map widget.
// Field names follow the admin UI's camelCase payload.
type MapSettings struct {
	VenueName    string `json:"venueName,omitempty"`
	VenueAddress string `json:"venueAddress,omitempty"`
	VenueDetail  string `json:"venueDetail,omitempty"`
	VenuePhone   string `json:"venuePhone,omitempty"`
	MapImage     string `json:"mapImage,omitempty"`
	SubwayInfo   string `json:"subwayInfo,omitempty"`
	BusInfo      string `json:"busInfo,omitempty"`
	ParkingInfo  string `json:"parkingInfo,omitempty"`
}

type APIKeys struct {
	NaverMapClientID string `json:"naver_map_client_id"`
}

// Clone returns a deep copy. Mutating the copy never touches the
// original's slices, which matters when duplicating an invitation.
func (c Config) Clone() Config {
	out := c
	if c.GalleryImages != nil {
		out.GalleryImages = append([]GalleryImage(nil), c.GalleryImages...)
	}
	if c.AccountInfo.GroomAccounts != nil {
		out.AccountInfo.GroomAccounts = append([]Account(nil), c.AccountInfo.GroomAccounts...)
	}
	if c.AccountInfo.BrideAccounts != nil {
		out.AccountInfo.BrideAccounts = append([]Account(nil), c.AccountInfo.BrideAccounts...)
	}
	return out
}

// DefaultInvitationName is the display name used when a create request
// does not carry one.
const DefaultInvitationName = "New Invitation"

// DefaultConfig builds the placeholder document a brand-new invitation
// starts from.
func DefaultConfig(name, slug string) Config {
	if name == "" {
		name = DefaultInvitationName
	}
	now := nowStamp()
	return Config{
		Meta: Meta{
			Name:      name,
			Slug:      slug,
			CreatedAt: now,
			UpdatedAt: now,
		},
		WeddingInfo: WeddingInfo{
			GroomName:      "Groom",
			BrideName:      "Bride",
			WeddingDate:    "2026-01-18",
			WeddingTime:    "11:30 AM",
			WeddingVenue:   "Wedding Hall",
			WeddingAddress: "Address",
		},
		FamilyInfo: FamilyInfo{
			GroomFather: "Father",
			GroomMother: "Mother",
			BrideFather: "Father",
			BrideMother: "Mother",
		},
		AccountInfo: AccountInfo{
			GroomAccounts: []Account{},
			BrideAccounts: []Account{},
		},
		Images: Images{
			MainPhoto:           "assets/images/main-photo.jpg",
			InvitationPhoto:     "assets/images/invitation-photo.jpg",
			InvitationPhotoType: "image",
			PhotoboothPhoto:     "assets/images/photobooth.jpg",
			OutroPhoto:          "assets/images/outro-photo.jpg",
			OutroPhotoType:      "image",
		},
		GalleryImages: []GalleryImage{},
		Audio: AudioSettings{
			Volume: 50,
		},
	}
}
