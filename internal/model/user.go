package model

import (
	"strings"
	"time"
)

// Roles stored in users.role.
const (
	RoleFrontEnd = "FRONTEND"
	RoleBackEnd  = "BACKEND"
)

// Publish settings of front-end user groups, ordered from least to most
// restrictive.
const (
	PublishImmediately = 0
	PublishHideNew     = 1
	PublishHideEdited  = 2
)

// User mirrors the shared columns of the `users` table.  Front-end and
// back-end users both extend it.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Name         string    // users.name (full name)
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

func (u *User) SetUsername(name string) error {
	if name == "" {
		return invalid(CodeEmptyUsername, "users.username", "must not be empty")
	}
	u.Username = name
	return nil
}

// DisplayName returns the full name if set, else first and last name,
// else the username.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.Username
}

// FrontEndUserGroup carries the defaults that apply to events created by
// its members in the front-end editor.
type FrontEndUserGroup struct {
	ID                  uint64   // fe_groups.id
	Title               string   // fe_groups.title
	PublishSetting      int      // fe_groups.publish_setting
	EventRecordsPID     uint64   // fe_groups.event_records_pid
	AuxiliaryRecordsPID uint64   // fe_groups.auxiliary_records_pid
	ReviewerID          uint64   // fe_groups.reviewer (back-end user)
	DefaultCategoryIDs  []uint64 // fe_groups_categories_mm
	DefaultOrganizerIDs []uint64 // fe_groups_organizers_mm
}

func (g *FrontEndUserGroup) SetTitle(title string) error {
	if err := requireTitle("fe_groups.title", title); err != nil {
		return err
	}
	g.Title = title
	return nil
}

func (g *FrontEndUserGroup) SetPublishSetting(v int) error {
	switch v {
	case PublishImmediately, PublishHideNew, PublishHideEdited:
		g.PublishSetting = v
		return nil
	}
	return invalid(CodeInvalidPublishSetting, "fe_groups.publish_setting", "unknown publish setting")
}

// FrontEndUser is a website visitor account: registers for events and,
// with the right group, edits events in the front-end editor.
type FrontEndUser struct {
	User
	Groups []*FrontEndUserGroup
}

// IsInGroup reports membership in the group with the given id.
func (u *FrontEndUser) IsInGroup(groupID uint64) bool {
	for _, g := range u.Groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}

// EventRecordsPID returns the storage location of the first group that
// defines one, or 0.
func (u *FrontEndUser) EventRecordsPID() uint64 {
	for _, g := range u.Groups {
		if g.EventRecordsPID > 0 {
			return g.EventRecordsPID
		}
	}
	return 0
}

// AuxiliaryRecordsPID works like EventRecordsPID for auxiliary records.
func (u *FrontEndUser) AuxiliaryRecordsPID() uint64 {
	for _, g := range u.Groups {
		if g.AuxiliaryRecordsPID > 0 {
			return g.AuxiliaryRecordsPID
		}
	}
	return 0
}

// PublishSetting returns the most restrictive setting over all groups.
func (u *FrontEndUser) PublishSetting() int {
	out := PublishImmediately
	for _, g := range u.Groups {
		if g.PublishSetting > out {
			out = g.PublishSetting
		}
	}
	return out
}

// DefaultCategoryIDs returns the union of the groups' default categories in
// first-seen order.
func (u *FrontEndUser) DefaultCategoryIDs() []uint64 {
	return unionIDs(u.Groups, func(g *FrontEndUserGroup) []uint64 { return g.DefaultCategoryIDs })
}

// DefaultOrganizerIDs returns the union of the groups' default organizers.
func (u *FrontEndUser) DefaultOrganizerIDs() []uint64 {
	return unionIDs(u.Groups, func(g *FrontEndUserGroup) []uint64 { return g.DefaultOrganizerIDs })
}

// ReviewerID returns the reviewer of the first group that has one.
func (u *FrontEndUser) ReviewerID() uint64 {
	for _, g := range u.Groups {
		if g.ReviewerID > 0 {
			return g.ReviewerID
		}
	}
	return 0
}

func unionIDs(groups []*FrontEndUserGroup, pick func(*FrontEndUserGroup) []uint64) []uint64 {
	seen := make(map[uint64]struct{})
	var out []uint64
	for _, g := range groups {
		for _, id := range pick(g) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// BackEndUserGroup defines default storage folders for its members.
type BackEndUserGroup struct {
	ID                     uint64 // be_groups.id
	Title                  string // be_groups.title
	EventFolder            uint64 // be_groups.event_folder
	RegistrationFolder     uint64 // be_groups.registration_folder
	AuxiliaryRecordsFolder uint64 // be_groups.auxiliary_records_folder
}

func (g *BackEndUserGroup) SetTitle(title string) error {
	if err := requireTitle("be_groups.title", title); err != nil {
		return err
	}
	g.Title = title
	return nil
}

// BackEndUser is an administrator account.  Its own folder columns win
// over the ones inherited from groups.
type BackEndUser struct {
	User
	EventFolder            uint64 // users.event_folder
	RegistrationFolder     uint64 // users.registration_folder
	AuxiliaryRecordsFolder uint64 // users.auxiliary_records_folder
	Groups                 []*BackEndUserGroup
}

func (u *BackEndUser) EventsFolder() uint64 {
	return u.folder(u.EventFolder, func(g *BackEndUserGroup) uint64 { return g.EventFolder })
}

func (u *BackEndUser) RegistrationsFolder() uint64 {
	return u.folder(u.RegistrationFolder, func(g *BackEndUserGroup) uint64 { return g.RegistrationFolder })
}

func (u *BackEndUser) AuxiliaryFolder() uint64 {
	return u.folder(u.AuxiliaryRecordsFolder, func(g *BackEndUserGroup) uint64 { return g.AuxiliaryRecordsFolder })
}

func (u *BackEndUser) folder(own uint64, pick func(*BackEndUserGroup) uint64) uint64 {
	if own > 0 {
		return own
	}
	for _, g := range u.Groups {
		if v := pick(g); v > 0 {
			return v
		}
	}
	return 0
}
