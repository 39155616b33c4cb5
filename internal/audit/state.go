package audit

// State is a typed before/after snapshot of an updated object. Every field of
// every State type is comparable so update handlers can diff with !=.
type State interface {
	state()
}

type GuildState struct {
	Name              string
	Description       string
	Icon              string
	OwnerID           string
	AFKChannelID      string
	AFKTimeout        int
	SystemChannelID   string
	VerificationLevel int
	ExplicitFilter    int
	VanityURLCode     string
	PreferredLocale   string
}

type ChannelState struct {
	Name               string
	Type               int
	Position           int
	Overwrites         string // rendered overwrite list
	Topic              string
	Bitrate            int
	RTCRegion          string
	VideoQualityMode   int
	DefaultAutoArchive int
	NSFW               bool
	SlowmodeDelay      int
	UserLimit          int
}

type OverwriteState struct {
	Allow string
	Deny  string
	ID    string
	Type  string
}

type MemberState struct {
	Nick          string
	Mute          bool
	Deaf          bool
	TimedOutUntil string // RFC3339, empty when not timed out
}

type RoleState struct {
	Name        string
	Color       int
	Hoist       bool
	Mentionable bool
	Permissions string
	Position    int
}

type InviteState struct {
	Code      string
	ChannelID string
	InviterID string
	MaxAge    int
	MaxUses   int
	Uses      int
	Temporary bool
}

type WebhookState struct {
	Name      string
	ChannelID string
	Avatar    string
}

type EmojiState struct {
	Name string
}

type StickerState struct {
	Name        string
	Description string
	Tags        string
}

type IntegrationState struct {
	ExpireBehavior    int
	ExpireGracePeriod int
	EnableEmoticons   bool
}

type StageInstanceState struct {
	Topic        string
	PrivacyLevel int
}

type ScheduledEventState struct {
	Name               string
	Description        string
	ChannelID          string
	EntityType         int
	Status             int
	Location           string
	PrivacyLevel       int
	ScheduledStartTime string
	ScheduledEndTime   string
}

type ThreadState struct {
	Name                string
	Archived            bool
	Locked              bool
	AutoArchiveDuration int
	SlowmodeDelay       int
}

type AutoModRuleState struct {
	Name           string
	EventType      int
	TriggerType    int
	Enabled        bool
	ExemptRoles    string
	ExemptChannels string
}

// MessageEditState is the content side of a message edit.
type MessageEditState struct {
	Content string
}

func (GuildState) state()          {}
func (ChannelState) state()        {}
func (OverwriteState) state()      {}
func (MemberState) state()         {}
func (RoleState) state()           {}
func (InviteState) state()         {}
func (WebhookState) state()        {}
func (EmojiState) state()          {}
func (StickerState) state()        {}
func (IntegrationState) state()    {}
func (StageInstanceState) state()  {}
func (ScheduledEventState) state() {}
func (ThreadState) state()         {}
func (AutoModRuleState) state()    {}
func (MessageEditState) state()    {}
