package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"stayhaven/internal/metrics"
	"stayhaven/internal/model"
)

var (
	ErrNotEditing    = errors.New("profile is not in edit mode")
	ErrSaveInFlight  = errors.New("profile save already in progress")
	ErrUnknownField  = errors.New("unknown profile field")
	ErrRequiredField = errors.New("field is required")
	ErrInvalidEmail  = errors.New("invalid email address")
)

// ProfileFieldNames lists the editable fields in display order.
var ProfileFieldNames = []string{"username", "email", "country", "city", "phone", "img"}

var requiredFields = map[string]bool{"username": true, "email": true, "country": true, "city": true}

// Profile returns the stored account.
func (d *Dashboard) Profile() model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.user
}

// Editing reports whether the profile form is open.
func (d *Dashboard) Editing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editing
}

// Draft returns the values being edited.
func (d *Dashboard) Draft() model.ProfileFields {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// StartEdit opens the form prefilled with the stored profile.
func (d *Dashboard) StartEdit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.editing {
		return
	}
	d.editing = true
	d.draft = d.user.Profile()
}

// CancelEdit drops the draft.
func (d *Dashboard) CancelEdit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saving {
		return
	}
	d.editing = false
	d.draft = model.ProfileFields{}
}

// SetField changes one draft field. Invalid input leaves the draft unchanged.
func (d *Dashboard) SetField(name, value string) error {
	value = strings.TrimSpace(value)
	if err := validateField(name, value); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.editing {
		return ErrNotEditing
	}
	switch name {
	case "username":
		d.draft.Username = value
	case "email":
		d.draft.Email = value
	case "country":
		d.draft.Country = value
	case "city":
		d.draft.City = value
	case "phone":
		d.draft.Phone = value
	case "img":
		d.draft.Img = value
	}
	return nil
}

// SaveProfile sends the draft. On success the stored profile is replaced and
// the form closes; on failure the form stays open with the draft.
func (d *Dashboard) SaveProfile(ctx context.Context) (model.User, error) {
	d.mu.Lock()
	if !d.editing {
		d.mu.Unlock()
		return model.User{}, ErrNotEditing
	}
	if d.saving {
		d.mu.Unlock()
		return model.User{}, ErrSaveInFlight
	}
	draft := d.draft
	userID := d.user.ID
	if err := ValidateProfile(draft); err != nil {
		d.mu.Unlock()
		return model.User{}, err
	}
	d.saving = true
	d.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	updated, err := d.svc.UpdateUser(callCtx, userID, draft)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.saving = false
	if err != nil {
		metrics.IncProfileUpdate("failure")
		return model.User{}, fmt.Errorf("update profile: %w", err)
	}
	metrics.IncProfileUpdate("success")

	if updated == nil || updated.ID == "" {
		d.user = d.user.WithProfile(draft)
	} else {
		d.user = *updated
	}
	d.editing = false
	d.draft = model.ProfileFields{}
	return d.user, nil
}

// ValidateProfile checks required fields and the email format.
func ValidateProfile(p model.ProfileFields) error {
	values := map[string]string{
		"username": p.Username,
		"email":    p.Email,
		"country":  p.Country,
		"city":     p.City,
		"phone":    p.Phone,
		"img":      p.Img,
	}
	for _, name := range ProfileFieldNames {
		if err := validateField(name, strings.TrimSpace(values[name])); err != nil {
			return err
		}
	}
	return nil
}

func validateField(name, value string) error {
	known := false
	for _, n := range ProfileFieldNames {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if requiredFields[name] && value == "" {
		return fmt.Errorf("%s: %w", name, ErrRequiredField)
	}
	if name == "email" {
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return fmt.Errorf("%w: %s", ErrInvalidEmail, value)
		}
	}
	return nil
}
