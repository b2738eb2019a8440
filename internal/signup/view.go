package signup

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

type GenderOption struct {
	Value    string
	Label    string
	Selected bool
}

var genders = []GenderOption{
	{Value: "male", Label: "Male"},
	{Value: "female", Label: "Female"},
	{Value: "other", Label: "Other"},
}

// FormView is what the signup template renders. Passwords are never echoed.
type FormView struct {
	Draft        Draft
	Age          int
	HasAge       bool
	DateHint     string
	Submitting   bool
	PictureLabel string
	MaxPicture   string
	Genders      []GenderOption
}

// CompleteView drives the success page that navigates to the login page.
type CompleteView struct {
	LoginPath    string
	DelaySeconds int
}

func NewFormView(snap Snapshot, maxPictureBytes int64) FormView {
	d := snap.Draft
	d.Credentials = Credentials{}

	view := FormView{
		Draft:      d,
		Submitting: snap.State == StateSubmitting,
		MaxPicture: humanize.IBytes(uint64(maxPictureBytes)),
	}
	view.Age, view.HasAge = d.Age()
	if d.DateOfBirthError() != nil {
		view.DateHint = Message(ErrInvalidDateOfBirth)
	}
	if p := d.ProfilePicture; p != nil {
		view.PictureLabel = fmt.Sprintf("%s (%s) uploaded", p.Name, humanize.IBytes(uint64(p.Size)))
	}

	view.Genders = make([]GenderOption, len(genders))
	for i, g := range genders {
		g.Selected = g.Value == d.Gender
		view.Genders[i] = g
	}
	return view
}
