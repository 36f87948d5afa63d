package profile

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"sort"
	"strings"

	"medimate-be/internal/apperror"
	"medimate-be/internal/entity"
	"medimate-be/internal/pkg/logger"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/feed"
	"medimate-be/pkg/reservation"
	"medimate-be/pkg/validation"

	"github.com/google/uuid"
)

const MaxPictureSize = 5 * 1024 * 1024

// Edits is the settings form as submitted.
type Edits struct {
	Name            string `json:"name" validate:"required,min=2,max=50"`
	Username        string `json:"username" validate:"required,username"`
	Mobile          string `json:"mobile" validate:"mobile"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

var formFields = map[string]string{
	"Name":     "name",
	"Username": "username",
	"Mobile":   "mobile",
}

var fieldMessages = map[string]string{
	"name":     "Name must be between 2 and 50 characters.",
	"username": "Username must be at least 3 characters and use only letters, numbers and underscores.",
	"mobile":   "Invalid mobile number format (e.g., +1234567890).",
}

type SaveResult struct {
	// Changed lists the profile fields that were written.
	Changed  []string         `json:"changed"`
	Password *PasswordOutcome `json:"password,omitempty"`
}

type Mutator struct {
	client   *backend.Client
	registry *reservation.Registry
	logger   logger.ILogger
}

func NewMutator(client *backend.Client, registry *reservation.Registry, log logger.ILogger) *Mutator {
	return &Mutator{client: client, registry: registry, logger: log}
}

func (e *Edits) normalize() {
	e.Name = strings.TrimSpace(e.Name)
	e.Username = strings.TrimSpace(e.Username)
	e.Mobile = strings.TrimSpace(e.Mobile)
}

func (e *Edits) validate() error {
	if err := validation.Validator().Struct(e); err != nil {
		details := map[string]string{}
		first := ""
		for structField := range validation.FieldErrors(err) {
			field := formFields[structField]
			details[field] = fieldMessages[field]
			if first == "" || field < first {
				first = field
			}
		}
		return apperror.FieldError(apperror.KindValidation, first, details[first]).WithDetails(details)
	}
	if e.NewPassword != "" && (len(e.NewPassword) < 6 || e.NewPassword != e.ConfirmPassword) {
		return apperror.FieldError(apperror.KindValidation, "confirmPassword", "Passwords don't match or new password is less than 6 characters.")
	}
	return nil
}

// Save writes what differs between current and edits. The order is fixed:
// the auth display name, then one batch for the profile, then the password.
// When the username changes the batch carries the swap and the display name
// follows it. A taken username stops the save before anything is written.
func (m *Mutator) Save(ctx context.Context, current *entity.UserProfile, edits Edits) (*SaveResult, error) {
	edits.normalize()
	if err := edits.validate(); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	var authFields backend.ProfileFields

	if edits.Name != current.Name {
		fields["name"] = edits.Name
		authFields.DisplayName = &edits.Name
	}
	currentMobile := ""
	if current.Mobile != nil {
		currentMobile = *current.Mobile
	}
	if edits.Mobile != currentMobile {
		if edits.Mobile == "" {
			fields["mobile"] = nil
		} else {
			fields["mobile"] = edits.Mobile
		}
	}
	usernameChanged := edits.Username != current.Username

	if usernameChanged {
		ok, err := m.registry.Available(ctx, edits.Username, current.Id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, reservation.Taken()
		}
	}

	// A rename can still lose the username inside its transaction, so the
	// display name waits for it.
	if authFields.DisplayName != nil && !usernameChanged {
		if err := m.updateDisplayName(ctx, current.Id, authFields); err != nil {
			return nil, err
		}
	}

	result := &SaveResult{Changed: changedFields(fields, usernameChanged)}

	switch {
	case usernameChanged:
		if err := m.registry.Rename(ctx, current.Id, current.Username, edits.Username, fields); err != nil {
			return nil, err
		}
		if authFields.DisplayName != nil {
			if err := m.updateDisplayName(ctx, current.Id, authFields); err != nil {
				return nil, err
			}
		}
	case len(fields) > 0:
		uow := m.client.Store.NewUnitOfWork(ctx)
		if err := uow.UserRepository().UpdateFields(ctx, current.Id, fields); err != nil {
			return nil, apperror.Translate(err, "Failed to update profile")
		}
	}
	if len(result.Changed) > 0 {
		m.notify(ctx, current.Id, feed.UserTopic(current.Id))
		m.logger.Info("ProfileMutator", "Profile updated", map[string]interface{}{
			"user_id": current.Id.String(),
			"fields":  result.Changed,
		})
	}

	if edits.NewPassword != "" {
		result.Password = ChangePassword(ctx, m.client.Auth, current.Id, edits.CurrentPassword, edits.NewPassword)
		if result.Password.Err != nil {
			return result, result.Password.Err
		}
	}
	return result, nil
}

func (m *Mutator) updateDisplayName(ctx context.Context, uid uuid.UUID, fields backend.ProfileFields) error {
	if err := m.client.Auth.UpdateProfileFields(ctx, uid, fields); err != nil {
		return apperror.Translate(err, "Failed to update display name")
	}
	return nil
}

func changedFields(fields map[string]interface{}, usernameChanged bool) []string {
	changed := make([]string, 0, len(fields)+1)
	for k := range fields {
		changed = append(changed, k)
	}
	if usernameChanged {
		changed = append(changed, "username")
	}
	sort.Strings(changed)
	return changed
}

// Picture is an image chosen for upload.
type Picture struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (p Picture) extension() string {
	if ext := strings.TrimPrefix(path.Ext(p.Filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, _ := mime.ExtensionsByType(p.ContentType); len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return strings.TrimPrefix(p.ContentType, "image/")
}

func PicturePath(uid uuid.UUID, ext string) string {
	return "profilePictures/" + uid.String() + "/profile." + ext
}

// ValidatePicture accepts images up to MaxPictureSize.
func ValidatePicture(contentType string, size int64) error {
	if !strings.HasPrefix(contentType, "image/") {
		return apperror.FieldError(apperror.KindValidation, "picture", "Please select an image file.")
	}
	if size > MaxPictureSize {
		return apperror.FieldError(apperror.KindValidation, "picture", "Please select an image smaller than 5MB.")
	}
	return nil
}

// UploadPicture replaces the user's picture and points both the auth
// account and the profile at it. Both updates are always attempted; a
// failed upload is UploadFailed, a failed update afterwards is
// ProfileSyncFailed.
func (m *Mutator) UploadPicture(ctx context.Context, uid uuid.UUID, pic Picture, onProgress backend.ProgressFunc) (string, error) {
	if err := ValidatePicture(pic.ContentType, pic.Size); err != nil {
		return "", err
	}

	url, err := m.client.Storage.Upload(ctx, PicturePath(uid, pic.extension()), pic.Body, pic.Size, pic.ContentType, onProgress)
	if err != nil {
		if apperror.Is(err, apperror.KindConfiguration) {
			return "", err
		}
		return "", apperror.Wrap(apperror.KindUploadFailed, "Upload failed.", err)
	}

	authErr := m.client.Auth.UpdateProfileFields(ctx, uid, backend.ProfileFields{PhotoURL: &url})

	uow := m.client.Store.NewUnitOfWork(ctx)
	storeErr := uow.UserRepository().UpdateFields(ctx, uid, map[string]interface{}{"photo_url": url})
	if storeErr == nil {
		m.notify(ctx, uid, feed.UserTopic(uid))
	}

	if err := errors.Join(authErr, storeErr); err != nil {
		m.logger.Error("ProfileMutator", "Picture uploaded but profile sync failed", map[string]interface{}{
			"user_id": uid.String(),
			"error":   err,
		})
		return url, apperror.Wrap(apperror.KindProfileSyncFailed, "Failed to save picture URL.", err).WithDetails(map[string]bool{
			"auth_updated":    authErr == nil,
			"profile_updated": storeErr == nil,
		})
	}
	return url, nil
}

func (m *Mutator) notify(ctx context.Context, uid uuid.UUID, topics ...string) {
	if err := m.client.Notify(ctx, topics...); err != nil {
		m.logger.Warn("ProfileMutator", "Failed to publish change", map[string]interface{}{
			"user_id": uid.String(),
			"error":   err.Error(),
		})
	}
}
