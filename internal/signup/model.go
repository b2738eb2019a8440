package signup

import (
	"time"
)

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// College holds the educational details as typed into the form. CGPA stays
// textual until submission so an edit is re-rendered exactly as entered.
type College struct {
	InstitutionName string `json:"institutionName"`
	Course          string `json:"course"`
	CGPA            string `json:"cgpa"`
}

// ProfilePicture is a staged upload that passed intake checks.
type ProfilePicture struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Identity is the personal and contact section of the form.
type Identity struct {
	FullName    string
	Username    string
	Email       string
	PhoneNumber string
	Gender      string
}

// Credentials is the account security section of the form.
type Credentials struct {
	Password        string
	ConfirmPassword string
}

// Draft is the in-memory signup record for one form session.
// Age is derived from DateOfBirth and only changes through SetDateOfBirth.
type Draft struct {
	Identity
	Credentials

	DateOfBirth    string
	Address        Address
	College        College
	Income         string
	ProfilePicture *ProfilePicture
	AgreeTerms     bool

	age    *int
	dobErr error
}

// Age returns the derived age and whether a valid date of birth is set.
func (d *Draft) Age() (int, bool) {
	if d.age == nil {
		return 0, false
	}
	return *d.age, true
}

// DateOfBirthError is the non-blocking hint for an unparsable date of birth.
func (d *Draft) DateOfBirthError() error {
	return d.dobErr
}

func (d *Draft) SetIdentity(id Identity) {
	d.Identity = id
}

// SetDateOfBirth stores the raw date and recomputes age against today.
// An empty value clears both. An invalid value clears age and records a hint.
func (d *Draft) SetDateOfBirth(raw string, today time.Time) {
	d.DateOfBirth = raw
	d.age = nil
	d.dobErr = nil

	if raw == "" {
		return
	}
	birth, err := ParseDateOfBirth(raw)
	if err != nil {
		d.dobErr = err
		return
	}
	age := AgeOn(birth, today)
	d.age = &age
}

func (d *Draft) SetAddress(a Address) {
	d.Address = a
}

func (d *Draft) SetCredentials(c Credentials) {
	d.Credentials = c
}

func (d *Draft) SetCollege(c College) {
	d.College = c
}

func (d *Draft) SetIncome(income string) {
	d.Income = income
}

// StageProfilePicture replaces any previously staged picture.
func (d *Draft) StageProfilePicture(p *ProfilePicture) {
	d.ProfilePicture = p
}

func (d *Draft) SetAgreeTerms(agree bool) {
	d.AgreeTerms = agree
}

// Reset returns every field, including the staged picture, to its zero value.
func (d *Draft) Reset() {
	*d = Draft{}
}

// Form is one full post of the signup form, minus the picture.
type Form struct {
	Identity    Identity
	DateOfBirth string
	Address     Address
	Credentials Credentials
	College     College
	Income      string
	AgreeTerms  bool
}

// Apply updates the draft section by section from a form post.
func (d *Draft) Apply(f Form, today time.Time) {
	d.SetIdentity(f.Identity)
	d.SetDateOfBirth(f.DateOfBirth, today)
	d.SetAddress(f.Address)
	d.SetCredentials(f.Credentials)
	d.SetCollege(f.College)
	d.SetIncome(f.Income)
	d.SetAgreeTerms(f.AgreeTerms)
}
