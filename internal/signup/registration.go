package signup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Registrar hands a validated signup to the registration backend. The
// profile picture, if any, travels as a separate attachment.
type Registrar interface {
	Register(ctx context.Context, reg *Registration, att *Attachment) error
}

// Registration is the structured payload sent to the backend. The raw
// password never leaves the process, only its bcrypt hash.
type Registration struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`

	FullName    string `json:"fullName"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Age         *int   `json:"age,omitempty"`

	Address Address       `json:"address"`
	College CollegeRecord `json:"college"`
	Income  *float64      `json:"income,omitempty"`

	PasswordHash   string          `json:"passwordHash"`
	ProfilePicture *AttachmentInfo `json:"profilePicture,omitempty"`
}

type CollegeRecord struct {
	InstitutionName string   `json:"institutionName,omitempty"`
	Course          string   `json:"course,omitempty"`
	CGPA            *float64 `json:"cgpa,omitempty"`
}

// AttachmentInfo describes the attachment that accompanies a registration.
type AttachmentInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Attachment is the binary profile picture sent next to the payload.
type Attachment struct {
	RegistrationID string
	Name           string
	ContentType    string
	Data           []byte
}

// LogValue keeps the password hash and personal details out of logs.
func (r *Registration) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", r.ID),
		slog.String("email", r.Email),
		slog.Bool("profile_picture", r.ProfilePicture != nil),
	}
	if r.Age != nil {
		attrs = append(attrs, slog.Int("age", *r.Age))
	}
	return slog.GroupValue(attrs...)
}

// NewRegistration builds the backend payload from a draft that passed the
// validation gate.
func NewRegistration(d Draft, now time.Time, hashCost int) (*Registration, *Attachment, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), hashCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	cgpa, err := parseOptionalNumber(d.College.CGPA)
	if err != nil {
		return nil, nil, fmt.Errorf("parse cgpa: %w", err)
	}
	income, err := parseOptionalNumber(d.Income)
	if err != nil {
		return nil, nil, fmt.Errorf("parse income: %w", err)
	}

	reg := &Registration{
		ID:          uuid.NewString(),
		SubmittedAt: now.UTC(),
		FullName:    strings.TrimSpace(d.FullName),
		Username:    strings.TrimSpace(d.Username),
		Email:       d.Email,
		PhoneNumber: strings.TrimSpace(d.PhoneNumber),
		Gender:      d.Gender,
		DateOfBirth: d.DateOfBirth,
		Address:     d.Address,
		College: CollegeRecord{
			InstitutionName: d.College.InstitutionName,
			Course:          d.College.Course,
			CGPA:            cgpa,
		},
		Income:       income,
		PasswordHash: string(hash),
	}
	if age, ok := d.Age(); ok {
		reg.Age = &age
	}

	var att *Attachment
	if p := d.ProfilePicture; p != nil {
		name := AttachmentFileName(p.Name, p.ContentType)
		reg.ProfilePicture = &AttachmentInfo{Name: name, ContentType: p.ContentType, Size: p.Size}
		att = &Attachment{
			RegistrationID: reg.ID,
			Name:           name,
			ContentType:    p.ContentType,
			Data:           p.Data,
		}
	}

	return reg, att, nil
}

// LogRegistrar is the placeholder backend: it logs the signup and succeeds.
type LogRegistrar struct {
	logger *slog.Logger
}

func NewLogRegistrar(logger *slog.Logger) *LogRegistrar {
	return &LogRegistrar{logger: logger}
}

func (r *LogRegistrar) Register(ctx context.Context, reg *Registration, att *Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	attrs := []any{"registration", reg}
	if att != nil {
		attrs = append(attrs, "attachment_name", att.Name, "attachment_bytes", len(att.Data))
	}
	r.logger.InfoContext(ctx, "signup data", attrs...)
	return nil
}
