// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"golang.org/x/oauth2/facebook"

	"github.com/taibuivan/authcore/pkg/pointer"
)

const facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"

type facebookProfile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Picture  struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	AvatarURL string `json:"avatar_url"`
}

// NewFacebook returns the Facebook provider.
func NewFacebook(cfg ProviderConfig) *OAuthProvider {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = facebook.Endpoint
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = facebookUserInfoURL
	}

	return newOAuthProvider(ProviderFacebook, cfg, []string{"email", "public_profile"}, parseFacebookProfile)
}

// Facebook only exposes confirmed addresses through the Graph API, so a
// returned email counts as verified.
func parseFacebookProfile(body []byte) (*ExternalIdentity, error) {
	var profile facebookProfile
	if err := decodeProfile(body, &profile); err != nil {
		return nil, err
	}

	return &ExternalIdentity{
		ExternalUserID: profile.ID,
		Email:          profile.Email,
		EmailVerified:  profile.Email != "",
		DisplayName:    pointer.FirstNonBlank(profile.Name, profile.FullName),
		AvatarURL:      pointer.FirstNonBlank(profile.Picture.Data.URL, profile.AvatarURL),
	}, nil
}
