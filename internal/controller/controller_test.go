package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"medimate-be/internal/apperror"
	"medimate-be/internal/authprovider"
	"medimate-be/internal/dto"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/pkg/serverutils"
	"medimate-be/internal/repository/memory"
	"medimate-be/internal/service"
	"medimate-be/internal/testutil"
	"medimate-be/pkg/profile"
	"medimate-be/pkg/reservation"
	"medimate-be/pkg/session"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenTable hands out "token-<uid>" access tokens.
type tokenTable struct{}

func tokenFor(uid uuid.UUID) string {
	return "token-" + uid.String()
}

func (tokenTable) VerifyAccessToken(token string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(token, "token-")
	if !ok {
		return uuid.Nil, apperror.New(apperror.KindAuthInvalidCredential, "Invalid token")
	}
	return uuid.Parse(raw)
}

func (tokenTable) IssueTokens(ctx context.Context, uid uuid.UUID) (*authprovider.Tokens, error) {
	return &authprovider.Tokens{AccessToken: tokenFor(uid), RefreshToken: "refresh-" + uid.String(), ExpiresIn: 3600}, nil
}

func (tokenTable) Refresh(ctx context.Context, refreshToken string) (*authprovider.Tokens, error) {
	raw, ok := strings.CutPrefix(refreshToken, "refresh-")
	if !ok {
		return nil, apperror.New(apperror.KindAuthInvalidCredential, "Invalid refresh token")
	}
	return tokenTable{}.IssueTokens(ctx, uuid.MustParse(raw))
}

func (tokenTable) VerifyEmail(ctx context.Context, token string) (uuid.UUID, error) {
	return uuid.Nil, apperror.New(apperror.KindValidation, "This verification link is invalid or has expired.")
}

func newTestApp(t *testing.T) (*fiber.App, *testutil.Backend) {
	t.Helper()
	b := testutil.NewBackend(t)
	log := logger.NewNopLogger()
	sessions := session.NewManager(b.Client, log)
	registry := reservation.NewRegistry(b.Store)

	jwt := serverutils.JwtMiddleware(tokenTable{})
	verified := serverutils.RequireVerified(sessions)

	authSvc := service.NewAuthService(b.Client, tokenTable{}, sessions, registry, nil, log)
	userSvc := service.NewUserService(b.Client, profile.NewMutator(b.Client, registry, log), memory.NewUploadProgressRepository(), nil, nil, log)
	chatSvc := service.NewChatService(b.Client, nil, log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(log))
	api := app.Group("/api")
	NewAuthController(authSvc, "http://client.test", jwt).RegisterRoutes(api)
	NewUserController(userSvc, jwt, verified).RegisterRoutes(api)
	NewChatController(chatSvc, jwt, verified).RegisterRoutes(api)
	return app, b
}

func call[T any](t *testing.T, app *fiber.App, method, target string, uid uuid.UUID, body interface{}) (int, serverutils.BaseResponse[T]) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if uid != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(uid))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var res serverutils.BaseResponse[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return resp.StatusCode, res
}

func TestAuthRoutes(t *testing.T) {
	app, _ := newTestApp(t)

	code, res := call[map[string]interface{}](t, app, "POST", "/api/auth/sign-up", uuid.Nil, map[string]string{
		"name":     "Lena Ortiz",
		"username": "lena_o",
		"email":    "lena@example.com",
		"password": "secret123",
	})
	require.Equal(t, 201, code, res.Message)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Data["access_token"])

	code, res = call[map[string]interface{}](t, app, "POST", "/api/auth/sign-up", uuid.Nil, map[string]string{
		"name":     "Other Lena",
		"username": "lena_o",
		"email":    "lena2@example.com",
		"password": "secret123",
	})
	assert.Equal(t, 409, code)
	assert.Equal(t, "USERNAME_TAKEN", res.ErrorCode)
	assert.Equal(t, "username", res.Field)

	code, res = call[map[string]interface{}](t, app, "POST", "/api/auth/sign-in", uuid.Nil, map[string]string{
		"email":    "lena_o",
		"password": "secret123",
	})
	require.Equal(t, 200, code, res.Message)
	sess := res.Data["session"].(map[string]interface{})
	assert.Equal(t, "unverified", sess["status"])

	code, res = call[map[string]interface{}](t, app, "POST", "/api/auth/sign-in", uuid.Nil, map[string]string{
		"email":    "lena@example.com",
		"password": "wrongpass",
	})
	assert.Equal(t, 401, code)
	assert.Equal(t, "AUTH_INVALID_CREDENTIAL", res.ErrorCode)
}

func TestSessionRoute(t *testing.T) {
	app, b := newTestApp(t)
	id := b.SeedUser(t, "mo@example.com", "mo_1", false)

	code, res := call[dto.SessionResponse](t, app, "GET", "/api/auth/session?view=chat", id.UID, nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "unverified", res.Data.Status)
	assert.Equal(t, string(session.ShowVerificationGate), res.Data.Decision)

	code, _ = call[any](t, app, "GET", "/api/auth/session", uuid.Nil, nil)
	assert.Equal(t, 401, code)
}

func TestVerifyEmailLinkRedirects(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/auth/verify-email?token=stale", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "http://client.test/verify-email?status=error", resp.Header.Get("Location"))
}

func TestChatRoutesRequireVerification(t *testing.T) {
	app, b := newTestApp(t)
	id := b.SeedUser(t, "ned@example.com", "ned_1", false)

	code, res := call[any](t, app, "GET", "/api/chats", id.UID, nil)
	assert.Equal(t, 403, code)
	assert.Equal(t, "AUTH_UNVERIFIED", res.ErrorCode)

	b.Auth.SetVerified(context.Background(), id.UID, true)
	code, _ = call[any](t, app, "GET", "/api/chats", id.UID, nil)
	assert.Equal(t, 200, code)
}

func TestChatRoutes(t *testing.T) {
	app, b := newTestApp(t)
	id := b.SeedUser(t, "ola@example.com", "ola_1", true)

	code, created := call[dto.ChatSessionResponse](t, app, "POST", "/api/chats", id.UID, nil)
	require.Equal(t, 201, code)
	chatURL := "/api/chats/" + created.Data.Id.String()

	code, sent := call[dto.SendMessageResponse](t, app, "POST", chatURL+"/messages", id.UID, map[string]string{"content": "Can I take aspirin?"})
	require.Equal(t, 200, code, sent.Message)
	assert.True(t, sent.Data.Sent)
	require.NotNil(t, sent.Data.Transcript)
	assert.Len(t, sent.Data.Transcript.Messages, 2)

	code, _ = call[any](t, app, "PATCH", chatURL, id.UID, map[string]string{"title": "Aspirin"})
	assert.Equal(t, 200, code)

	code, renamed := call[dto.TranscriptResponse](t, app, "GET", chatURL, id.UID, nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "Aspirin", renamed.Data.Chat.Title)

	code, res := call[any](t, app, "PATCH", chatURL, id.UID, map[string]string{"title": "  "})
	assert.Equal(t, 400, code)
	assert.Equal(t, "title", res.Field)

	code, deleted := call[dto.DeleteChatResponse](t, app, "DELETE", chatURL+"?open="+created.Data.Id.String(), id.UID, nil)
	require.Equal(t, 200, code)
	assert.True(t, deleted.Data.NavigateAway)

	code, res = call[any](t, app, "GET", chatURL, id.UID, nil)
	assert.Equal(t, 404, code)
	assert.Equal(t, "CHAT_NOT_FOUND", res.ErrorCode)

	code, _ = call[any](t, app, "GET", "/api/chats/not-a-uuid", id.UID, nil)
	assert.Equal(t, 404, code)
}

func TestProfileRoutes(t *testing.T) {
	app, b := newTestApp(t)
	id := b.SeedUser(t, "pia@example.com", "pia_1", true)
	b.SeedUser(t, "quin@example.com", "quin", true)

	code, res := call[service.SaveProfileResponse](t, app, "PUT", "/api/user/profile", id.UID, map[string]string{
		"name":     "Pia Larsen",
		"username": "pia_l",
	})
	require.Equal(t, 200, code, res.Message)
	assert.Equal(t, []string{"name", "username"}, res.Data.Changed)
	assert.Equal(t, "pia_l", res.Data.User.Username)

	code, res = call[service.SaveProfileResponse](t, app, "PUT", "/api/user/profile", id.UID, map[string]string{
		"name":     "Pia Larsen",
		"username": "quin",
	})
	assert.Equal(t, 409, code)
	assert.Equal(t, "USERNAME_TAKEN", res.ErrorCode)

	code, profileRes := call[dto.ProfileResponse](t, app, "GET", "/api/user/profile", id.UID, nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "pia_l", profileRes.Data.Username)
}

func TestPictureUpload(t *testing.T) {
	app, b := newTestApp(t)
	id := b.SeedUser(t, "rae@example.com", "rae_1", true)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 16, 16))))

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="picture"; filename="me.png"`)
	header.Set("Content-Type", "image/png")
	part, err := form.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest("POST", "/api/user/profile/picture", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tokenFor(id.UID))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var res serverutils.BaseResponse[dto.UploadPictureResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Contains(t, res.Data.PhotoURL, "profilePictures/"+id.UID.String())
	assert.Len(t, b.Storage.Uploads(), 1)

	code, progress := call[dto.UploadProgressResponse](t, app, "GET", "/api/user/profile/picture/progress", id.UID, nil)
	require.Equal(t, 200, code)
	assert.True(t, progress.Data.Done)
}
