package signup_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"scholarship-portal/internal/flash"
	"scholarship-portal/internal/logger"
	"scholarship-portal/internal/signup"
	"scholarship-portal/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	router    chi.Router
	store     *signup.Store
	registrar *fakeRegistrar
}

func setupHandler(t *testing.T, reg *fakeRegistrar, maxPictureBytes int64) *handlerFixture {
	t.Helper()
	log := logger.New()
	renderer, err := web.NewRenderer(log)
	require.NoError(t, err)

	store := signup.NewStore(30*time.Minute, fixedClock)
	handler := signup.NewHandler(newTestService(reg), store, renderer, signup.HandlerConfig{
		MaxPictureBytes: maxPictureBytes,
		SubmitTimeout:   5 * time.Second,
		LoginPath:       "/login",
		RedirectDelay:   2 * time.Second,
	}, log, nil)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return &handlerFixture{router: router, store: store, registrar: reg}
}

type filePart struct {
	name        string
	contentType string
	data        []byte
}

func formValues(f signup.Form) url.Values {
	v := url.Values{}
	v.Set("fullName", f.Identity.FullName)
	v.Set("username", f.Identity.Username)
	v.Set("email", f.Identity.Email)
	v.Set("phoneNumber", f.Identity.PhoneNumber)
	v.Set("gender", f.Identity.Gender)
	v.Set("dob", f.DateOfBirth)
	v.Set("street", f.Address.Street)
	v.Set("city", f.Address.City)
	v.Set("state", f.Address.State)
	v.Set("zipCode", f.Address.ZipCode)
	v.Set("password", f.Credentials.Password)
	v.Set("confirmPassword", f.Credentials.ConfirmPassword)
	v.Set("institutionName", f.College.InstitutionName)
	v.Set("course", f.College.Course)
	v.Set("cgpa", f.College.CGPA)
	v.Set("income", f.Income)
	if f.AgreeTerms {
		v.Set("agreeTerms", "on")
	}
	return v
}

func multipartRequest(t *testing.T, path string, values url.Values, file *filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, vals := range values {
		for _, val := range vals {
			require.NoError(t, mw.WriteField(key, val))
		}
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="profilePicture"; filename=%q`, file.name))
		header.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (f *handlerFixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// startSession opens the form and returns the session cookie.
func (f *handlerFixture) startSession(t *testing.T) *http.Cookie {
	t.Helper()
	w := f.do(httptest.NewRequest(http.MethodGet, "/signup", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return findCookie(t, w, signup.SessionCookieName)
}

// sessionFor looks up the server-side session behind a session cookie.
func sessionFor(t *testing.T, f *handlerFixture, cookie *http.Cookie) *signup.Session {
	t.Helper()
	sess, ok := f.store.Get(cookie.Value)
	require.True(t, ok, "session %s not found", cookie.Value)
	return sess
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	require.FailNow(t, "cookie not set", name)
	return nil
}

func TestSignupHandler(t *testing.T) {
	t.Run("Form_StartsSession", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)

		w := f.do(httptest.NewRequest(http.MethodGet, "/signup", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Create Account")
		cookie := findCookie(t, w, signup.SessionCookieName)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("Submit_Success_RedirectsToComplete", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)
		cookie := f.startSession(t)

		w := f.do(multipartRequest(t, "/signup", formValues(validForm()), nil), cookie)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/signup/complete", w.Header().Get("Location"))
		assert.Equal(t, 1, f.registrar.callCount())
		assert.Equal(t, 0, f.store.Len())
		assert.NotEmpty(t, findCookie(t, w, flash.CookieName).Value)
		assert.True(t, findCookie(t, w, signup.SessionCookieName).MaxAge < 0)

		reg := f.registrar.calls[0]
		assert.Equal(t, "Asha Rao", reg.FullName)
		require.NotNil(t, reg.Age)
		assert.Equal(t, 16, *reg.Age)
	})

	t.Run("Submit_MissingName_RetainsFields", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)
		cookie := f.startSession(t)

		form := validForm()
		form.Identity.FullName = ""
		w := f.do(multipartRequest(t, "/signup", formValues(form), nil), cookie)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Please enter your full name")
		assert.Contains(t, body, "asha.rao@example.in")
		assert.Contains(t, body, "Age: 16 years")
		assert.NotContains(t, body, "abcd1234")
		assert.Equal(t, 0, f.registrar.callCount())
	})

	t.Run("Submit_Underage", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)

		form := validForm()
		form.DateOfBirth = "2010-01-01"
		w := f.do(multipartRequest(t, "/signup", formValues(form), nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "You must be at least 16 years old to register")
	})

	t.Run("Submit_URLEncodedForm", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)

		req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(formValues(validForm()).Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := f.do(req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, 1, f.registrar.callCount())
	})

	t.Run("Submit_RegistrarFailure", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{err: errors.New("broker down")}, 0)
		cookie := f.startSession(t)

		w := f.do(multipartRequest(t, "/signup", formValues(validForm()), nil), cookie)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "Signup failed: broker down")
		assert.Contains(t, w.Body.String(), "asha.rao@example.in")
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("Submit_WithPicture", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)

		w := f.do(multipartRequest(t, "/signup", formValues(validForm()), &filePart{name: "me.png", contentType: "image/png", data: pngBytes}))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, 1, f.registrar.callCount())
		att := f.registrar.atts[0]
		require.NotNil(t, att)
		assert.Equal(t, "me.png", att.Name)
		assert.Equal(t, "image/png", att.ContentType)
		assert.Equal(t, pngBytes, att.Data)
	})

	t.Run("Submit_PictureTooLarge_NotSubmitted", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 1024)

		big := append(append([]byte{}, pngBytes...), make([]byte, 2048)...)
		w := f.do(multipartRequest(t, "/signup", formValues(validForm()), &filePart{name: "big.png", contentType: "image/png", data: big}))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Profile picture should be less than 1.0 KiB")
		assert.Equal(t, 0, f.registrar.callCount())
	})

	t.Run("Submit_PictureBeyondBodyAllowance_RetainsFields", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 1024)
		cookie := f.startSession(t)

		big := append(append([]byte{}, pngBytes...), make([]byte, 2<<20)...)
		w := f.do(multipartRequest(t, "/signup", formValues(validForm()), &filePart{name: "big.png", contentType: "image/png", data: big}), cookie)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Profile picture should be less than 1.0 KiB")
		assert.Contains(t, body, "Asha Rao")
		assert.Contains(t, body, "asha.rao@example.in")
		assert.Equal(t, 0, f.registrar.callCount())

		snap := sessionFor(t, f, cookie).Snapshot()
		assert.Equal(t, "Asha Rao", snap.Draft.FullName)
		assert.Nil(t, snap.Draft.ProfilePicture)
	})

	t.Run("Submit_PictureBeforeFields_RetainsFields", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 1024)
		cookie := f.startSession(t)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("profilePicture", "big.png")
		require.NoError(t, err)
		_, err = part.Write(append(append([]byte{}, pngBytes...), make([]byte, 4096)...))
		require.NoError(t, err)
		for key, vals := range formValues(validForm()) {
			require.NoError(t, mw.WriteField(key, vals[0]))
		}
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/signup", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		w := f.do(req, cookie)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Profile picture should be less than 1.0 KiB")
		assert.Contains(t, w.Body.String(), "asha.rao@example.in")
		assert.Equal(t, "Asha Rao", sessionFor(t, f, cookie).Snapshot().Draft.FullName)
	})

	t.Run("UploadPicture_StagesAndShowsLabel", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)
		cookie := f.startSession(t)

		w := f.do(multipartRequest(t, "/signup/picture", nil, &filePart{name: "me.png", contentType: "image/png", data: pngBytes}), cookie)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/signup", w.Header().Get("Location"))

		w = f.do(httptest.NewRequest(http.MethodGet, "/signup", nil), cookie)
		assert.Contains(t, w.Body.String(), "me.png (")
		assert.Contains(t, w.Body.String(), "uploaded")
	})

	t.Run("UploadPicture_UnsupportedType", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)
		cookie := f.startSession(t)

		w := f.do(multipartRequest(t, "/signup/picture", nil, &filePart{name: "anim.gif", contentType: "image/gif", data: gifBytes}), cookie)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Only JPG and PNG files are allowed")
	})

	t.Run("Reset_ClearsDraft", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)
		cookie := f.startSession(t)

		form := validForm()
		form.AgreeTerms = false
		w := f.do(multipartRequest(t, "/signup", formValues(form), nil), cookie)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Contains(t, w.Body.String(), "asha.rao@example.in")

		w = f.do(httptest.NewRequest(http.MethodPost, "/signup/reset", nil), cookie)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/signup", w.Header().Get("Location"))

		w = f.do(httptest.NewRequest(http.MethodGet, "/signup", nil), cookie)
		assert.NotContains(t, w.Body.String(), "asha.rao@example.in")
		assert.NotContains(t, w.Body.String(), "Age: 16 years")
	})

	t.Run("Submit_WhileOutstanding_Conflict", func(t *testing.T) {
		reg := &fakeRegistrar{started: make(chan struct{}, 1), release: make(chan struct{})}
		f := setupHandler(t, reg, 0)
		cookie := f.startSession(t)

		firstReq := multipartRequest(t, "/signup", formValues(validForm()), nil)
		done := make(chan *httptest.ResponseRecorder, 1)
		go func() {
			done <- f.do(firstReq, cookie)
		}()
		<-reg.started

		second := validForm()
		second.Identity.Email = "someone.else@example.in"
		w := f.do(multipartRequest(t, "/signup", formValues(second), nil), cookie)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "Your signup is already being submitted")
		assert.Contains(t, w.Body.String(), `class="primary" disabled`)
		assert.Contains(t, w.Body.String(), "asha.rao@example.in")
		assert.NotContains(t, w.Body.String(), "someone.else@example.in")

		close(reg.release)
		first := <-done
		assert.Equal(t, http.StatusSeeOther, first.Code)
		assert.Equal(t, 1, reg.callCount())
	})

	t.Run("Complete_RefreshesToLogin", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)

		w := f.do(httptest.NewRequest(http.MethodGet, "/signup/complete", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "2;url=/login")
	})

	t.Run("Age_Preview", func(t *testing.T) {
		f := setupHandler(t, &fakeRegistrar{}, 0)

		w := f.do(httptest.NewRequest(http.MethodGet, "/signup/age?dob=2008-01-01", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp signup.AgeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, 16, resp.Age)

		w = f.do(httptest.NewRequest(http.MethodGet, "/signup/age?dob=2008-13", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Please enter a valid date of birth")
	})
}
