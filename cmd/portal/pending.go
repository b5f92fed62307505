package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hugh/tarviz/internal/api/dto"
	"github.com/hugh/tarviz/internal/apiclient"
	"github.com/hugh/tarviz/internal/authflow"
	"github.com/hugh/tarviz/internal/session"
)

const keyPendingProfile = "pendingProfile"

// pendingProfile holds the signup form's business and contact details until
// the new account first signs in. The signup request itself only carries the
// email and first name.
type pendingProfile struct {
	Email   string                   `json:"email"`
	Profile dto.UpdateProfileRequest `json:"profile"`
}

type profileUpdater interface {
	UpdateProfile(ctx context.Context, req dto.UpdateProfileRequest) (*dto.UserDTO, error)
}

func profileRequest(p authflow.SignupProfile) dto.UpdateProfileRequest {
	b, c := p.Business, p.ContactPerson
	return dto.UpdateProfileRequest{
		Business: dto.BusinessDetails{
			Name:            b.Name,
			Address:         b.Address,
			GSTIN:           b.GSTIN,
			HSN:             b.HSN,
			Email:           b.Email,
			Phone:           b.Phone,
			WhatsAppConsent: b.WhatsAppConsent,
		},
		ContactPerson: dto.ContactPersonDetails{
			Salutation:      c.Salutation,
			FirstName:       c.FirstName,
			LastName:        c.LastName,
			Phone:           c.Phone,
			WhatsAppConsent: c.WhatsAppConsent,
		},
	}
}

func savePendingProfile(ctx context.Context, store session.Store, p authflow.SignupProfile) error {
	data, err := json.Marshal(pendingProfile{
		Email:   p.ContactPerson.Email,
		Profile: profileRequest(p),
	})
	if err != nil {
		return err
	}
	return store.Set(ctx, keyPendingProfile, string(data))
}

// applyPendingProfile saves a held signup profile once its account has signed
// in and reports whether it did. A profile the server rejects as invalid is
// dropped; any other failure keeps it for the next sign-in.
func applyPendingProfile(ctx context.Context, store session.Store, api profileUpdater, email string) (bool, error) {
	raw, err := store.Get(ctx, keyPendingProfile)
	if errors.Is(err, session.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var pending pendingProfile
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		_ = store.Delete(ctx, keyPendingProfile)
		return false, fmt.Errorf("reading saved signup details: %w", err)
	}
	if !strings.EqualFold(pending.Email, strings.TrimSpace(email)) {
		return false, nil
	}

	if _, err := api.UpdateProfile(ctx, pending.Profile); err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			_ = store.Delete(ctx, keyPendingProfile)
		}
		return false, err
	}

	if err := store.Delete(ctx, keyPendingProfile); err != nil && !errors.Is(err, session.ErrNotFound) {
		return true, err
	}
	return true, nil
}
