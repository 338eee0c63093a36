// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"golang.org/x/oauth2/google"

	"github.com/taibuivan/authcore/pkg/pointer"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// googleProfile is the OpenID Connect userinfo payload. FullName and
// AvatarURL cover proxies that rename the standard claims.
type googleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Picture       string `json:"picture"`
	AvatarURL     string `json:"avatar_url"`
}

// NewGoogle returns the Google provider.
func NewGoogle(cfg ProviderConfig) *OAuthProvider {
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = googleUserInfoURL
	}

	return newOAuthProvider(ProviderGoogle, cfg, []string{"openid", "email", "profile"}, parseGoogleProfile)
}

func parseGoogleProfile(body []byte) (*ExternalIdentity, error) {
	var profile googleProfile
	if err := decodeProfile(body, &profile); err != nil {
		return nil, err
	}

	return &ExternalIdentity{
		ExternalUserID: profile.Subject,
		Email:          profile.Email,
		EmailVerified:  profile.EmailVerified,
		DisplayName:    pointer.FirstNonBlank(profile.Name, profile.FullName),
		AvatarURL:      pointer.FirstNonBlank(profile.Picture, profile.AvatarURL),
	}, nil
}
