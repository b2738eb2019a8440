package signup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scholarship-portal/internal/flash"
	"scholarship-portal/internal/httputil"
	"scholarship-portal/internal/metrics"
	"scholarship-portal/internal/web"

	"github.com/go-chi/chi/v5"
)

const (
	SessionCookieName = "signup_session"

	pictureField = "profilePicture"

	// formOverhead is the allowance for non-file fields in a form post.
	formOverhead = 1 << 20
	// maxPostBytes caps a multipart post regardless of the picture limit.
	maxPostBytes = 32 << 20
)

var errFormTooLarge = errors.New("signup form fields too large")

type HandlerConfig struct {
	MaxPictureBytes int64
	SubmitTimeout   time.Duration
	LoginPath       string
	RedirectDelay   time.Duration
}

type Handler struct {
	service  *Service
	store    *Store
	renderer *web.Renderer
	cfg      HandlerConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(service *Service, store *Store, renderer *web.Renderer, cfg HandlerConfig, logger *slog.Logger, m *metrics.Metrics) *Handler {
	if cfg.MaxPictureBytes <= 0 {
		cfg.MaxPictureBytes = DefaultMaxPictureBytes
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	return &Handler{
		service:  service,
		store:    store,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/signup", func(r chi.Router) {
		r.Get("/", h.Form)
		r.Post("/", h.Submit)
		r.Post("/picture", h.UploadPicture)
		r.Post("/reset", h.Reset)
		r.Get("/complete", h.Complete)
		r.Get("/age", h.Age)
	})
}

// Form renders the current draft of the caller's form session.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	h.renderForm(w, r, sess, http.StatusOK, readNotice(w, r))
}

// Submit applies a full form post, stages an attached picture and runs the
// submission workflow. Fields from the post are kept even when the picture
// is rejected.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	post, err := h.readPost(w, r)
	if err != nil {
		h.renderError(w, r, sess, err)
		return
	}

	form := formFromValues(post.values)
	err = sess.Edit(func(d *Draft) {
		d.Apply(form, h.service.Now())
		if post.picture != nil {
			d.StageProfilePicture(post.picture)
		}
	})
	if err == nil {
		err = h.checkPicture(r, sess, post)
	}
	if err != nil {
		h.renderError(w, r, sess, err)
		return
	}

	ctx := r.Context()
	if h.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.SubmitTimeout)
		defer cancel()
	}

	if _, err := h.service.Submit(ctx, sess); err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.InfoContext(r.Context(), "signup request cancelled", "session", sess.ID)
			return
		}
		h.renderError(w, r, sess, err)
		return
	}

	h.store.Delete(sess.ID)
	h.clearSessionCookie(w, r)
	flash.Write(w, r, flash.Success("Sign up successful!"))
	http.Redirect(w, r, "/signup/complete", http.StatusSeeOther)
}

// UploadPicture stages a profile picture without touching other fields.
func (h *Handler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	post, err := h.readPost(w, r)
	if err == nil {
		err = h.checkPicture(r, sess, post)
	}
	if err == nil && post.picture != nil {
		err = sess.Edit(func(d *Draft) {
			d.StageProfilePicture(post.picture)
		})
	}
	if err != nil {
		h.renderError(w, r, sess, err)
		return
	}

	http.Redirect(w, r, "/signup", http.StatusSeeOther)
}

// Reset clears the draft, including a staged picture.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	sess.Reset()

	h.logger.InfoContext(r.Context(), "signup form reset", "session", sess.ID)
	flash.Write(w, r, flash.Info("Form has been reset"))
	http.Redirect(w, r, "/signup", http.StatusSeeOther)
}

// Complete confirms a successful signup and navigates to the login page
// after the configured delay.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, "complete", web.Page{
		Title:  "Account created",
		Notice: readNotice(w, r),
		Data: CompleteView{
			LoginPath:    h.cfg.LoginPath,
			DelaySeconds: int(h.cfg.RedirectDelay / time.Second),
		},
	})
}

type AgeResponse struct {
	Age int `json:"age"`
}

// Age previews the derived age for a date of birth.
func (h *Handler) Age(w http.ResponseWriter, r *http.Request) {
	age, err := h.service.AgeFor(r.URL.Query().Get("dob"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, Message(err))
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, AgeResponse{Age: age})
}

// postedForm is a form post read part by part. Text fields are collected
// even when the picture part is rejected or the body is cut off.
type postedForm struct {
	values     url.Values
	picture    *ProfilePicture
	pictureErr error
}

func (h *Handler) readPost(w http.ResponseWriter, r *http.Request) (*postedForm, error) {
	post := &postedForm{values: url.Values{}}

	r.Body = http.MaxBytesReader(w, r.Body, h.postLimit())
	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		r.Body = http.MaxBytesReader(w, r.Body, formOverhead)
		if err := r.ParseForm(); err != nil {
			h.logger.WarnContext(r.Context(), "failed to parse signup form", "error", err)
			return nil, err
		}
		post.values = r.PostForm
		return post, nil
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to parse signup form", "error", err)
		return nil, err
	}

	budget := int64(formOverhead)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return post, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			if post.pictureErr == nil {
				post.pictureErr = &PictureTooLargeError{Limit: h.cfg.MaxPictureBytes}
			}
			return post, nil
		}
		if err != nil {
			h.logger.WarnContext(r.Context(), "failed to read signup form", "error", err)
			return nil, err
		}

		if part.FileName() != "" || part.FormName() == pictureField {
			h.readPicturePart(part, post)
			part.Close()
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, budget+1))
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("read field %s: %w", part.FormName(), err)
		}
		budget -= int64(len(value))
		if budget < 0 {
			return nil, errFormTooLarge
		}
		post.values.Add(part.FormName(), string(value))
	}
}

func (h *Handler) readPicturePart(part *multipart.Part, post *postedForm) {
	if part.FormName() != pictureField || part.FileName() == "" {
		_, _ = io.Copy(io.Discard, part)
		return
	}
	post.picture, post.pictureErr = IntakeProfilePicture(PictureUpload{
		Name:        part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Body:        part,
	}, h.cfg.MaxPictureBytes)
}

// postLimit bounds a whole multipart post. An oversized picture is drained
// up to this limit so the fields sent after it are still read.
func (h *Handler) postLimit() int64 {
	return max(maxPostBytes, 2*h.cfg.MaxPictureBytes+formOverhead)
}

// checkPicture records and returns the rejection of the posted picture.
func (h *Handler) checkPicture(r *http.Request, sess *Session, post *postedForm) error {
	if post.pictureErr == nil {
		return nil
	}
	h.metrics.RecordPictureRejected(r.Context(), pictureRejectReason(post.pictureErr))
	h.logger.InfoContext(r.Context(), "profile picture rejected", "session", sess.ID, "error", post.pictureErr)
	return post.pictureErr
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, sess *Session, err error) {
	notice := flash.Error(Message(err))
	h.renderForm(w, r, sess, statusFor(err), &notice)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, sess *Session, status int, notice *flash.Notice) {
	h.renderer.Render(w, r, status, "signup", web.Page{
		Title:  "Create Account",
		Notice: notice,
		Data:   NewFormView(sess.Snapshot(), h.cfg.MaxPictureBytes),
	})
}

// session returns the caller's form session, starting a new one when the
// cookie is missing or refers to an expired session.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *Session {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if sess, ok := h.store.Get(cookie.Value); ok {
			return sess
		}
	}

	sess := h.store.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/signup",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/signup",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func formFromValues(values url.Values) Form {
	get := func(key string) string {
		return strings.TrimSpace(values.Get(key))
	}
	return Form{
		Identity: Identity{
			FullName:    get("fullName"),
			Username:    get("username"),
			Email:       get("email"),
			PhoneNumber: get("phoneNumber"),
			Gender:      get("gender"),
		},
		DateOfBirth: get("dob"),
		Address: Address{
			Street:  get("street"),
			City:    get("city"),
			State:   get("state"),
			ZipCode: get("zipCode"),
		},
		Credentials: Credentials{
			Password:        values.Get("password"),
			ConfirmPassword: values.Get("confirmPassword"),
		},
		College: College{
			InstitutionName: get("institutionName"),
			Course:          get("course"),
			CGPA:            get("cgpa"),
		},
		Income:     get("income"),
		AgreeTerms: values.Get("agreeTerms") != "",
	}
}

func readNotice(w http.ResponseWriter, r *http.Request) *flash.Notice {
	if notice, ok := flash.ReadAndClear(w, r); ok {
		return &notice
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSubmissionInProgress), errors.Is(err, ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, ErrSubmissionFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}

func pictureRejectReason(err error) string {
	switch {
	case errors.Is(err, ErrPictureTooLarge):
		return "too_large"
	case errors.Is(err, ErrPictureUnsupportedType):
		return "unsupported_type"
	default:
		return "read_error"
	}
}
